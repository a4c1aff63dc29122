package usecase

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"storyrag/internal/domain"
	"storyrag/internal/port"
)

//go:embed templates/extract_prompt.txt
var extractPromptText string

var extractPrompt = template.Must(template.New("extract").Parse(extractPromptText))

// ExtractUseCase answers "tell me about character X" queries: retrieve the
// most relevant chunks, prompt the model once and validate its JSON output.
// Results are never cached; every call recomputes retrieval and generation.
type ExtractUseCase struct {
	index           port.VectorIndex
	llm             port.LLM
	topK            int
	maxContextChars int
	logger          *zap.Logger
}

func NewExtractUseCase(index port.VectorIndex, llm port.LLM, topK, maxContextChars int, logger *zap.Logger) *ExtractUseCase {
	if topK <= 0 {
		topK = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractUseCase{
		index:           index,
		llm:             llm,
		topK:            topK,
		maxContextChars: maxContextChars,
		logger:          logger,
	}
}

type promptData struct {
	Character string
	Context   string
}

// Extract retrieves context for name and asks the model for a structured
// description. The model's "not found" marker surfaces as
// domain.ErrCharacterNotFound; output that is not valid JSON of the expected
// shape surfaces as domain.ErrMalformedOutput. Callers never see raw model
// text.
func (u *ExtractUseCase) Extract(name string) (domain.CharacterInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.CharacterInfo{}, fmt.Errorf("%w: character name is empty", domain.ErrInvalidInput)
	}

	if !u.index.Ready() {
		if err := u.index.Load(); err != nil {
			return domain.CharacterInfo{}, fmt.Errorf("index unavailable: %w", err)
		}
	}

	results, err := u.index.Search(name, u.topK)
	if err != nil {
		return domain.CharacterInfo{}, fmt.Errorf("retrieval failed: %w", err)
	}

	prompt, err := u.renderPrompt(name, results)
	if err != nil {
		return domain.CharacterInfo{}, err
	}

	// One call, no retry on malformed output, no streaming.
	output, err := u.llm.Generate(prompt)
	if err != nil {
		return domain.CharacterInfo{}, fmt.Errorf("generation failed: %w", err)
	}

	info, err := parseCharacterInfo(output)
	if err != nil {
		if !errors.Is(err, domain.ErrCharacterNotFound) {
			u.logger.Warn("model output rejected", zap.String("character", name), zap.Error(err))
		}
		return domain.CharacterInfo{}, err
	}

	return info, nil
}

// renderPrompt assembles the bounded context block and fills the extraction
// template.
func (u *ExtractUseCase) renderPrompt(name string, results []domain.ScoredChunk) (string, error) {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString("Story: ")
		sb.WriteString(r.Chunk.Title)
		sb.WriteString("\n")
		sb.WriteString(r.Chunk.Text)
	}

	context := sb.String()
	if u.maxContextChars > 0 {
		context = headRunes(context, u.maxContextChars)
	}

	var buf bytes.Buffer
	if err := extractPrompt.Execute(&buf, promptData{Character: name, Context: context}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// parseCharacterInfo strictly decodes the model output. Markdown code fences
// around the JSON are tolerated; anything else non-JSON is rejected.
func parseCharacterInfo(output string) (domain.CharacterInfo, error) {
	raw := strings.TrimSpace(stripFences(output))

	var marker struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &marker); err != nil {
		return domain.CharacterInfo{}, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if marker.Error != "" {
		return domain.CharacterInfo{}, fmt.Errorf("%w: %s", domain.ErrCharacterNotFound, marker.Error)
	}

	var info domain.CharacterInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return domain.CharacterInfo{}, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}

	if info.Name == "" || info.Summary == "" {
		return domain.CharacterInfo{}, fmt.Errorf("%w: missing required fields", domain.ErrMalformedOutput)
	}
	if !domain.ValidCharacterType(info.CharacterType) {
		return domain.CharacterInfo{}, fmt.Errorf("%w: unknown character type %q", domain.ErrMalformedOutput, info.CharacterType)
	}

	return info, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return s
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
