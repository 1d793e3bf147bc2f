package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"skillquiz"

	openai "github.com/sashabaranov/go-openai"
)

// genproxy is the intermediary between the quiz application and the language
// model. It accepts one generation request and answers with a validated
// question set, translating oracle quota and billing failures into the 429
// and 402 statuses the client expects.

type proxyServer struct {
	client *openai.Client
}

type generateRequest struct {
	Subject       string `json:"subject"`
	SkillLevel    string `json:"skillLevel"`
	QuestionCount int    `json:"questionCount"`
}

type generateResponse struct {
	Questions []skillquiz.GeneratedQuestion `json:"questions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func main() {
	skillquiz.SetVerbose(os.Getenv("VERBOSE") != "")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	server := &proxyServer{client: openai.NewClient(apiKey)}
	http.HandleFunc("/generate", server.handleGenerate)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8181"
	}

	log.Printf("Starting generation proxy on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func (s *proxyServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	defer r.Body.Close()

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if strings.TrimSpace(req.Subject) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "subject is required"})
		return
	}
	if req.QuestionCount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "questionCount must be positive"})
		return
	}
	level, err := skillquiz.ParseSkillLevel(req.SkillLevel)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	questions, err := s.generateQuestions(r, req.Subject, level, req.QuestionCount)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.HTTPStatusCode {
			case http.StatusTooManyRequests:
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			case http.StatusPaymentRequired:
				writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: "billing failure"})
				return
			}
		}
		log.Printf("Generation failed for subject %q: %v", req.Subject, err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "question generation failed"})
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Questions: questions})
}

func (s *proxyServer) generateQuestions(r *http.Request, subject string, level skillquiz.SkillLevel, count int) ([]skillquiz.GeneratedQuestion, error) {
	skillquiz.VerboseLog("Generating %d questions for subject: %s (%s)", count, subject, level)

	optionProperties := map[string]interface{}{}
	for _, label := range skillquiz.OptionLabels {
		optionProperties[label] = map[string]interface{}{
			"type":        "string",
			"description": "Text of option " + label,
		}
	}

	resp, err := s.client.CreateChatCompletion(
		r.Context(),
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an expert quiz question generator. Generate high-quality multiple choice questions with exactly 4 options labeled A through D.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildPrompt(subject, level, count),
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        "submit_questions",
						Description: "Submit generated quiz questions",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"questions": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"question": map[string]interface{}{
												"type":        "string",
												"description": "The question text",
											},
											"options": map[string]interface{}{
												"type":        "object",
												"properties":  optionProperties,
												"required":    skillquiz.OptionLabels,
												"description": "The four answer options keyed by label",
											},
											"correct_answer": map[string]interface{}{
												"type":        "string",
												"enum":        skillquiz.OptionLabels,
												"description": "Label of the correct option",
											},
											"explanation": map[string]interface{}{
												"type":        "string",
												"description": "Brief explanation of why the answer is correct",
											},
										},
										"required": []string{"question", "options", "correct_answer", "explanation"},
									},
								},
							},
							"required": []string{"questions"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: "submit_questions",
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool calls in response")
	}
	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != "submit_questions" {
		return nil, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	var toolArgs generateResponse
	if err := json.Unmarshal([]byte(skillquiz.StripCodeFence(toolCall.Function.Arguments)), &toolArgs); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	for i, question := range toolArgs.Questions {
		if err := question.Validate(); err != nil {
			return nil, fmt.Errorf("model produced invalid question %d: %w", i+1, err)
		}
	}

	skillquiz.VerboseLog("Generated %d questions", len(toolArgs.Questions))
	return toolArgs.Questions, nil
}

func buildPrompt(subject string, level skillquiz.SkillLevel, count int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate exactly %d multiple choice questions about: %s\n\n", count, subject))
	sb.WriteString(fmt.Sprintf("Skill level: %s\n\n", level))
	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Return exactly %d questions, no more and no fewer\n", count))
	sb.WriteString("- Each question must have exactly 4 options labeled A, B, C and D\n")
	sb.WriteString("- The correct answer should be non-obvious but clearly correct\n")
	sb.WriteString("- Incorrect options should be plausible but clearly wrong\n")
	sb.WriteString("- Calibrate difficulty to the stated skill level\n")
	sb.WriteString("- Provide a brief explanation for why the correct answer is right\n")
	sb.WriteString("- Use the submit_questions tool to return your questions\n")

	return sb.String()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
