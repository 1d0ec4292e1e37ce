package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	llmprovider "github.com/haowjy/meridian-llm-go"

	"lexcorpus/internal/capabilities"
	reviewModels "lexcorpus/internal/domain/models/review"
	reviewSvc "lexcorpus/internal/domain/services/review"
)

type fakeGenerator struct {
	reply    string
	err      error
	requests []*llmprovider.GenerateRequest
}

func (g *fakeGenerator) GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	thinking := "pensando"
	return &llmprovider.GenerateResponse{
		Blocks: []*llmprovider.Block{
			{BlockType: "thinking", TextContent: &thinking},
			{BlockType: blockTypeText, TextContent: &g.reply},
		},
		Model: req.Model,
	}, nil
}

func promptOf(req *llmprovider.GenerateRequest) string {
	return *req.Messages[0].Blocks[0].TextContent
}

func newTestClient(gen *fakeGenerator, caps *capabilities.ModelCapabilities) *Client {
	return NewClient(gen, "claude-haiku-4-5", caps, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractCell(t *testing.T) {
	gen := &fakeGenerator{reply: `{"value": ["Ana", "Bruno"], "confidence": 0.85, "source_excerpt": "LOCADOR: Ana"}`}
	client := newTestClient(gen, nil)

	got, err := client.ExtractCell(context.Background(), &reviewSvc.ExtractionRequest{
		DocumentName: "locacao.pdf",
		Text:         "LOCADOR: Ana. LOCATÁRIO: Bruno.",
		Column:       reviewModels.ColumnDef{Name: "Parte", Type: reviewModels.ColumnList, ExtractionPrompt: "Liste as partes."},
	})
	if err != nil {
		t.Fatalf("ExtractCell: %v", err)
	}
	if got.Value != "Ana; Bruno" || got.Confidence != 0.85 || got.SourceExcerpt != "LOCADOR: Ana" {
		t.Errorf("extraction = %+v", got)
	}

	req := gen.requests[0]
	if req.Model != "claude-haiku-4-5" || req.Params == nil || req.Params.System == nil || *req.Params.MaxTokens != extractionMaxTokens {
		t.Errorf("request = %+v", req)
	}
	prompt := promptOf(req)
	for _, want := range []string{"Field: Parte", "Liste as partes.", "a JSON array of strings", `<document name="locacao.pdf">`, "LOCATÁRIO: Bruno."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestExtractCell_TruncatesToModelBudget(t *testing.T) {
	gen := &fakeGenerator{reply: `{"value": "x", "confidence": 1}`}
	caps := &capabilities.ModelCapabilities{ContextWindow: 1100, MaxOutput: 100, CharsPerToken: 0.01}
	client := newTestClient(gen, caps)

	_, err := client.ExtractCell(context.Background(), &reviewSvc.ExtractionRequest{
		DocumentName: "longo.txt",
		Text:         strings.Repeat("ação ", 10),
		Column:       reviewModels.ColumnDef{Name: "Objeto", Type: reviewModels.ColumnText, ExtractionPrompt: "Resuma."},
	})
	if err != nil {
		t.Fatal(err)
	}
	// 1000 tokens * 0.01 chars per token = 10 runes of document text
	if prompt := promptOf(gen.requests[0]); !strings.Contains(prompt, "\nação ação \n</document>") {
		t.Errorf("document text not truncated to 10 runes:\n%s", prompt)
	}
}

func TestExtractCell_Errors(t *testing.T) {
	req := &reviewSvc.ExtractionRequest{
		DocumentName: "a.txt",
		Text:         "texto",
		Column:       reviewModels.ColumnDef{Name: "Foro", Type: reviewModels.ColumnText, ExtractionPrompt: "Indique o foro."},
	}

	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"provider error", &fakeGenerator{err: errors.New("rate limited")}},
		{"empty reply", &fakeGenerator{reply: "   "}},
		{"prose reply", &fakeGenerator{reply: "O foro é Curitiba."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newTestClient(tt.gen, nil).ExtractCell(context.Background(), req); err == nil {
				t.Error("ExtractCell succeeded")
			}
		})
	}
}

func TestAnswerQuestion(t *testing.T) {
	gen := &fakeGenerator{reply: `{"answer": "Dois.", "citations": []}`}
	client := newTestClient(gen, &capabilities.ModelCapabilities{ContextWindow: 200000, MaxOutput: 512})

	reply, err := client.AnswerQuestion(context.Background(), "Table: T\n[R1] a.pdf\n", "Quantos?")
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if reply != `{"answer": "Dois.", "citations": []}` {
		t.Errorf("reply = %q; thinking blocks must be dropped", reply)
	}
	req := gen.requests[0]
	if *req.Params.MaxTokens != 512 {
		t.Errorf("max tokens = %d, want the model's max output", *req.Params.MaxTokens)
	}
	if prompt := promptOf(req); !strings.HasSuffix(prompt, "Question: Quantos?") || !strings.Contains(prompt, "[R1] a.pdf") {
		t.Errorf("prompt = %q", prompt)
	}
}
