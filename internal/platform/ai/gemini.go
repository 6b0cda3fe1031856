package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel  = "gemini-2.0-flash-lite"
	fallbackModel = "gemini-1.5-flash"

	insufficientDataMarker = "INSUFFICIENT_CLINICAL_DATA"
)

const reportSystemPrompt = `You are a veterinary clinical scribe. You turn raw consultation notes into a structured clinical report.

Rules:
- Use clear, precise medical language
- Stick strictly to case-relevant information only
- Do NOT invent findings that are not present in the input
- If the input contains too little clinical information to structure, respond with exactly ` + insufficientDataMarker + ` and nothing else
- Respond ONLY with a JSON object whose keys are the requested section names and whose values are plain-text section content (no markdown)`

// Client calls a Gemini-style generateContent endpoint. It implements
// Transcriber, ReportGenerator, SectionRewriter and DocumentAnalyzer.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Role  string         `json:"role"`
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate sends one prompt to the primary model, falling back to the
// secondary model on 429/404 the same way the legacy backend did.
func (c *Client) generate(ctx context.Context, parts []generatePart) (string, error) {
	body, err := c.post(ctx, c.model, parts)
	if err != nil {
		var retryable *retryableError
		if errors.As(err, &retryable) {
			body, err = c.post(ctx, fallbackModel, parts)
		}
		if err != nil {
			return "", err
		}
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		return resp.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("no response generated")
}

type retryableError struct {
	status int
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("generation API error: status %d", e.status)
}

func (c *Client) post(ctx context.Context, model string, parts []generatePart) ([]byte, error) {
	req := generateRequest{
		GenerationConfig: map[string]interface{}{
			"temperature":     0.7,
			"topK":            40,
			"topP":            0.95,
			"maxOutputTokens": 2048,
		},
	}
	req.Contents = append(req.Contents, struct {
		Role  string         `json:"role"`
		Parts []generatePart `json:"parts"`
	}{Role: "user", Parts: parts})

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call generation API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusNotFound {
		return nil, &retryableError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation API error: status %d", resp.StatusCode)
	}
	return body, nil
}

// Transcribe implements Transcriber by sending the audio inline with a
// transcription prompt and parsing the JSON the model returns.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error) {
	prompt := `Transcribe this veterinary consultation recording. Respond ONLY with JSON:
{"text": "<full transcription>", "segments": [{"start": <seconds>, "end": <seconds>, "text": "<span>", "speaker": "<label>"}]}`

	parts := []generatePart{
		{Text: prompt},
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(audio)}},
	}
	text, err := c.generate(ctx, parts)
	if err != nil {
		return nil, err
	}

	var tr Transcript
	if err := json.Unmarshal([]byte(stripFences(text)), &tr); err != nil {
		// A plain-text transcription is still usable.
		return &Transcript{Text: strings.TrimSpace(text)}, nil
	}
	return &tr, nil
}

// GenerateReport implements ReportGenerator.
func (c *Client) GenerateReport(ctx context.Context, rawInput string, patient PatientContext, sections []string, instruction string) (map[string]string, error) {
	var sb strings.Builder
	sb.WriteString(reportSystemPrompt)
	sb.WriteString("\n\n")
	writePatientContext(&sb, patient)
	sb.WriteString("Requested sections: ")
	sb.WriteString(strings.Join(sections, ", "))
	sb.WriteString("\n")
	if instruction != "" {
		sb.WriteString("Additional instruction: ")
		sb.WriteString(instruction)
		sb.WriteString("\n")
	}
	sb.WriteString("\nConsultation notes:\n")
	sb.WriteString(rawInput)

	text, err := c.generate(ctx, []generatePart{{Text: sb.String()}})
	if err != nil {
		return nil, err
	}
	if strings.Contains(text, insufficientDataMarker) {
		return nil, ErrInsufficientData
	}

	var out map[string]string
	if err := json.Unmarshal([]byte(stripFences(text)), &out); err != nil {
		return nil, fmt.Errorf("decode report sections: %w", err)
	}
	return out, nil
}

// RewriteSection implements SectionRewriter.
func (c *Client) RewriteSection(ctx context.Context, content, title, instruction, caseContext string) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are a veterinary clinical scribe. Rewrite one section of a clinical report.\n")
	sb.WriteString("Respond ONLY with the rewritten section content, plain text, no markdown.\n\n")
	fmt.Fprintf(&sb, "Section: %s\nInstruction: %s\n\nCase context:\n%s\n\nCurrent content:\n%s", title, instruction, caseContext, content)

	text, err := c.generate(ctx, []generatePart{{Text: sb.String()}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// AnalyzeDocument implements DocumentAnalyzer.
func (c *Client) AnalyzeDocument(ctx context.Context, file []byte, mimeType string, extractPatientInfo bool) (*DocumentAnalysis, error) {
	prompt := `Analyze this veterinary medical record. Respond ONLY with JSON:
{"summary": "<clinical narrative summary>", "diagnoses": ["..."]}`
	if extractPatientInfo {
		prompt = `Analyze this veterinary medical record. Respond ONLY with JSON:
{"summary": "<clinical narrative summary>", "diagnoses": ["..."], "patientFields": {"name": "", "species": "", "breed": "", "sex": "", "weight": ""}}
Omit patientFields entries that are not present in the document.`
	}

	parts := []generatePart{
		{Text: prompt},
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(file)}},
	}
	text, err := c.generate(ctx, parts)
	if err != nil {
		return nil, err
	}

	var da DocumentAnalysis
	if err := json.Unmarshal([]byte(stripFences(text)), &da); err != nil {
		return nil, fmt.Errorf("decode document analysis: %w", err)
	}
	return &da, nil
}

func writePatientContext(sb *strings.Builder, p PatientContext) {
	if p == (PatientContext{}) {
		return
	}
	sb.WriteString("Patient Information:\n")
	pairs := []struct{ label, value string }{
		{"Patient ID", p.PatientID},
		{"Name", p.Name},
		{"Species", p.Species},
		{"Breed", p.Breed},
		{"Sex", p.Sex},
		{"Age", p.Age},
		{"Weight (kg)", p.WeightKG},
	}
	for _, pair := range pairs {
		if pair.value != "" {
			fmt.Fprintf(sb, "- %s: %s\n", pair.label, pair.value)
		}
	}
	sb.WriteString("\n")
}

// stripFences removes a markdown code fence around a JSON payload. Models
// sometimes wrap JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
