package domain

// Document is a single uploaded story. Title is derived from the file name
// minus its extension and is immutable once created.
type Document struct {
	Title string
	Text  string
}

// Chunk is a bounded-length slice of a document, the unit of embedding and
// retrieval. It inherits the title of the document it was cut from.
type Chunk struct {
	Title string
	Text  string
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Relation describes how a character relates to another one.
type Relation struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
}

// Character classification values the model is allowed to return.
const (
	CharacterProtagonist = "protagonist"
	CharacterAntagonist  = "antagonist"
	CharacterSupporting  = "supporting"
)

// CharacterInfo is the validated structured result of an extraction query.
type CharacterInfo struct {
	Name          string     `json:"name"`
	StoryTitle    string     `json:"storyTitle"`
	Summary       string     `json:"summary"`
	Relations     []Relation `json:"relations"`
	CharacterType string     `json:"characterType"`
}

// ValidCharacterType reports whether t is one of the allowed classifications.
// "supporting character" is accepted too since models frequently echo the
// prompt's long form.
func ValidCharacterType(t string) bool {
	switch t {
	case CharacterProtagonist, CharacterAntagonist, CharacterSupporting, "supporting character":
		return true
	}
	return false
}
