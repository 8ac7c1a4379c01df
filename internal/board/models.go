package board

// RankingLists holds the two ordered ranking columns shown side by side.
// Items are opaque labels; the server never inspects their content. Both
// lists are always replaced together, wholesale, on every update.
type RankingLists struct {
	ListA []string `json:"listA" bson:"listA"`
	ListB []string `json:"listB" bson:"listB"`
}

// Headers are the two display labels above the ranking columns.
type Headers struct {
	HeaderA string `json:"headerA" bson:"headerA"`
	HeaderB string `json:"headerB" bson:"headerB"`
}

// DefaultHeaders is substituted whenever no headers record has been written.
func DefaultHeaders() Headers {
	return Headers{HeaderA: "Ben", HeaderB: "Steve"}
}
