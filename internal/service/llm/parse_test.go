package llm

import (
	"testing"

	reviewModels "lexcorpus/internal/domain/models/review"
)

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name           string
		reply          string
		columnType     reviewModels.ColumnType
		wantValue      string
		wantConfidence float64
		wantExcerpt    string
		wantErr        bool
	}{
		{
			name:           "plain text",
			reply:          `{"value": " Comarca de Curitiba ", "confidence": 0.92, "source_excerpt": "fica eleito o foro da Comarca de Curitiba"}`,
			columnType:     reviewModels.ColumnText,
			wantValue:      "Comarca de Curitiba",
			wantConfidence: 0.92,
			wantExcerpt:    "fica eleito o foro da Comarca de Curitiba",
		},
		{
			name:           "fenced list",
			reply:          "```json\n{\"value\": [\"Ana Souza\", \"Bruno Lima\"], \"confidence\": 0.8}\n```",
			columnType:     reviewModels.ColumnList,
			wantValue:      "Ana Souza; Bruno Lima",
			wantConfidence: 0.8,
		},
		{
			name:           "brazilian number string",
			reply:          `{"value": "R$ 1.234,56", "confidence": 0.7}`,
			columnType:     reviewModels.ColumnNumber,
			wantValue:      "1234.56",
			wantConfidence: 0.7,
		},
		{
			name:           "json number",
			reply:          `{"value": 15000, "confidence": 1}`,
			columnType:     reviewModels.ColumnNumber,
			wantValue:      "15000",
			wantConfidence: 1,
		},
		{
			name:           "portuguese boolean",
			reply:          `{"value": "Sim", "confidence": 0.6}`,
			columnType:     reviewModels.ColumnBoolean,
			wantValue:      "true",
			wantConfidence: 0.6,
		},
		{
			name:           "dd/mm/yyyy date",
			reply:          `{"value": "31/01/2027", "confidence": 0.9}`,
			columnType:     reviewModels.ColumnDate,
			wantValue:      "2027-01-31",
			wantConfidence: 0.9,
		},
		{
			name:           "null value",
			reply:          `{"value": null, "confidence": 0.4}`,
			columnType:     reviewModels.ColumnText,
			wantValue:      "",
			wantConfidence: 0,
		},
		{
			name:           "missing confidence",
			reply:          `{"value": "Ana"}`,
			columnType:     reviewModels.ColumnText,
			wantValue:      "Ana",
			wantConfidence: 0.5,
		},
		{name: "prose", reply: "The contract is between Ana and Bruno.", columnType: reviewModels.ColumnText, wantErr: true},
		{name: "broken json", reply: `{"value": "Ana",}`, columnType: reviewModels.ColumnText, wantErr: true},
		{name: "list for a text column", reply: `{"value": ["a"]}`, columnType: reviewModels.ColumnText, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExtraction(tt.reply, tt.columnType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Value != tt.wantValue || got.Confidence != tt.wantConfidence || got.SourceExcerpt != tt.wantExcerpt {
				t.Errorf("got %+v, want value %q confidence %v excerpt %q", got, tt.wantValue, tt.wantConfidence, tt.wantExcerpt)
			}
		})
	}
}
