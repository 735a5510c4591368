package gcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/evidenceassessment/internal/llm"
	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// --- Evidence Reviewer Model Prompts ---
const ReviewerSystemPrompt = "You are a third-party risk assessor. You review vendor evidence documents against one compliance design element at a time and report whether the evidence demonstrates it. You must output your response as a single valid JSON object."
const ReviewerUserPrompt = `Review the attached PDF evidence against the compliance question below.

Question: %s
Design element under review: %s

Follow these rules precisely:
1.  Base your judgement only on the attached documents. Do not assume controls that are not evidenced.
2.  Return a single JSON object with exactly these keys:
    - "Answer": "YES" if the evidence fully demonstrates the design element, "PARTIAL" if it is only partly demonstrated, otherwise "NO".
    - "Answer_Quality": "ADEQUATE" if the evidence is specific and sufficient, "INADEQUATE" if it is vague or missing, "NEEDS_REVIEW" if a human should check it.
    - "Answer_Source": the document name and page or section the answer relies on.
    - "Summary": two or three sentences explaining the judgement.
    - "Reference": the exact section heading or clause cited.
3.  Do not include any text before or after the JSON object.`

// VertexClient holds the pre-configured evidence reviewer model.
type VertexClient struct {
	ReviewerModel *genai.GenerativeModel
	baseClient    *genai.Client
}

// NewVertexClient creates a new client holding the reviewer model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	reviewerModel := baseClient.GenerativeModel(modelName)
	reviewerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ReviewerSystemPrompt)},
	}
	reviewerModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		ReviewerModel: reviewerModel,
		baseClient:    baseClient,
	}, nil
}

// Validate sends the payload evidence inline to the reviewer model. It
// satisfies llm.Validator, so the model can replace the HTTP endpoint.
func (c *VertexClient) Validate(ctx context.Context, payload models.EvidencePayload) (string, error) {
	parts, err := ReviewParts(payload)
	if err != nil {
		return "", err
	}
	resp, err := c.ReviewerModel.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("GenerateContent: %w", err)
	}
	return ResponseText(resp)
}

// ReviewParts builds the request parts: every evidence PDF followed by the
// instructions.
func ReviewParts(payload models.EvidencePayload) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, len(payload.Evidences)+1)
	for i, encoded := range payload.Evidences {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("evidence %d of %s is not valid base64: %w", i+1, payload.DesignElementID, err)
		}
		parts = append(parts, genai.Blob{MIMEType: "application/pdf", Data: data})
	}
	parts = append(parts, genai.Text(fmt.Sprintf(ReviewerUserPrompt, payload.Question, payload.Prompt)))
	return parts, nil
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyAnswer
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", llm.ErrEmptyAnswer
	}
	return b.String(), nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
