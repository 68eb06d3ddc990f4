package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestParseResponseStripsFences(t *testing.T) {
	raw := "```json\n" + validReply + "\n```"
	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 78 {
		t.Fatalf("unexpected score %d", res.Score)
	}
}

func TestParseResponseBareFence(t *testing.T) {
	if _, err := ParseResponse("```\n" + validReply + "\n```"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseResponseExtractsBraces(t *testing.T) {
	raw := "Here is the analysis you asked for:\n" + validReply + "\nGood luck!"
	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Strengths) != 3 {
		t.Fatalf("unexpected strengths %v", res.Strengths)
	}
}

func TestParseResponseErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "   ", "empty response"},
		{"no object", "no braces here", "no JSON object"},
		{"broken object", "prefix {\"score\": } suffix", "malformed JSON"},
		{"missing key", `{"score": 50, "strengths": [], "suggestions": []}`, "missing required field: missing_skills"},
		{"score too high", `{"score": 150, "strengths": [], "missing_skills": [], "suggestions": []}`, "score"},
		{"score negative", `{"score": -1, "strengths": [], "missing_skills": [], "suggestions": []}`, "score"},
		{"score string", `{"score": "80", "strengths": [], "missing_skills": [], "suggestions": []}`, "score"},
		{"list not list", `{"score": 80, "strengths": "great", "missing_skills": [], "suggestions": []}`, "must be a list: strengths"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseResponse(tc.raw)
			if !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateResultReportsField(t *testing.T) {
	_, err := ValidateResult(map[string]any{"score": 10.0, "strengths": []any{}, "missing_skills": []any{}})
	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.Field != "suggestions" {
		t.Fatalf("expected ResponseError for suggestions, got %#v", err)
	}
}

func TestParseResponseAllowsEmptyListsAndBounds(t *testing.T) {
	for _, score := range []string{"0", "100"} {
		raw := `{"score": ` + score + `, "strengths": [], "missing_skills": [], "suggestions": []}`
		res, err := ParseResponse(raw)
		if err != nil {
			t.Fatalf("score %s: unexpected error: %v", score, err)
		}
		if len(res.Strengths) != 0 {
			t.Fatalf("expected empty strengths")
		}
	}
}

func TestBuildPromptRoleContext(t *testing.T) {
	p := BuildPrompt("  resume body  ", "")
	if !strings.Contains(p, DefaultRoleContext) || !strings.Contains(p, "resume body") {
		t.Fatalf("default prompt missing pieces")
	}
	if strings.Contains(p, "{{") {
		t.Fatalf("unreplaced placeholder in prompt")
	}
	p = BuildPrompt("body", "Backend Engineer")
	if !strings.Contains(p, "Backend Engineer positions") || strings.Contains(p, DefaultRoleContext) {
		t.Fatalf("role prompt missing target role")
	}
}
