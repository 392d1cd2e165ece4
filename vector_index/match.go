package vectorindex

type Match struct {
	Id       string
	Score    float32
	Metadata map[string]any
}
