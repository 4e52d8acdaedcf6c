package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestParseResponse(t *testing.T) {
	testCases := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{name: "nil", resp: nil, want: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: ""},
		{name: "nil content", resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{}},
		}, want: ""},
		{name: "joined text", resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("涨了"), genai.Text(""), genai.Text("注意风险")}},
			}},
		}, want: "涨了\n注意风险"},
		{name: "non text parts skipped", resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}, genai.Text("ok")}},
			}},
		}, want: "ok"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseResponse(tc.resp))
		})
	}
}
