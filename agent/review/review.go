package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/groupchat/types"
)

// FunctionName is the function a reviewer calls to report its verdict.
const FunctionName = "ReviewCodeBlock"

// ApprovalMarker prefixes every approving review. Workflows route on it.
const ApprovalMarker = "The code looks good"

const (
	feedbackHeader = "There're some comments from code reviewer, please fix these comments"
	approval       = ApprovalMarker + ", please ask runner to run the code for you."
)

// CodeReviewResult is the reviewer's verdict. Every flag is true when the
// corresponding check passed.
type CodeReviewResult struct {
	IsSingleCodeBlock      bool `json:"is_single_code_block"`
	IsCorrectLanguage      bool `json:"is_correct_language"`
	IsTopLevelStatement    bool `json:"is_top_level_statement"`
	IsPrintResultToConsole bool `json:"is_print_result_to_console"`
}

// Passed reports whether every check passed.
func (r CodeReviewResult) Passed() bool {
	return len(r.Instructions("")) == 0
}

// Instructions lists one fix-up instruction per failing check, in check
// order.
func (r CodeReviewResult) Instructions(language string) []string {
	var out []string
	if !r.IsSingleCodeBlock {
		out = append(out, "There're multiple code blocks, please combine them into one code block")
	}
	if !r.IsCorrectLanguage {
		out = append(out, fmt.Sprintf("The code block is not %s code block, please write %s code only", language, language))
	}
	if !r.IsTopLevelStatement {
		out = append(out, fmt.Sprintf("The code is not top level statement, please rewrite your %s code using top level statement", language))
	}
	if !r.IsPrintResultToConsole {
		out = append(out, "The code doesn't print out result to console, please print out result to console")
	}
	return out
}

// Feedback renders the reply text for a verdict: a bullet list of fixes when
// any check failed, the approval otherwise.
func Feedback(result CodeReviewResult, language string) string {
	instructions := result.Instructions(language)
	if len(instructions) == 0 {
		return approval
	}

	var sb strings.Builder
	sb.WriteString(feedbackHeader)
	sb.WriteByte('\n')
	for _, in := range instructions {
		sb.WriteString("- ")
		sb.WriteString(in)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ReviewCodeBlockFunction declares the verdict function for code written in
// language.
func ReviewCodeBlockFunction(language string) types.FunctionSchema {
	flags := []struct{ name, description string }{
		{"is_single_code_block", "true if there is exactly one code block"},
		{"is_correct_language", fmt.Sprintf("true if the code block is a %s code block", language)},
		{"is_top_level_statement", "true if the code is written as top level statements"},
		{"is_print_result_to_console", "true if the code prints the result to console"},
	}
	params := types.NewObjectSchema()
	for _, f := range flags {
		params.AddProperty(f.name, types.NewBooleanSchema().WithDescription(f.description)).
			AddRequired(f.name)
	}
	// Booleans and fixed strings always marshal.
	fn, _ := params.Function(FunctionName, "review code block")
	return fn
}

// ReviewCodeBlockHandler validates the call arguments and re-encodes them
// as a CodeReviewResult. Missing flags are an error.
func ReviewCodeBlockHandler(_ context.Context, arguments string) (string, error) {
	var args struct {
		IsSingleCodeBlock      *bool `json:"is_single_code_block"`
		IsCorrectLanguage      *bool `json:"is_correct_language"`
		IsTopLevelStatement    *bool `json:"is_top_level_statement"`
		IsPrintResultToConsole *bool `json:"is_print_result_to_console"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid %s arguments: %w", FunctionName, err)
	}
	if args.IsSingleCodeBlock == nil || args.IsCorrectLanguage == nil ||
		args.IsTopLevelStatement == nil || args.IsPrintResultToConsole == nil {
		return "", fmt.Errorf("%s requires all four flags", FunctionName)
	}

	out, err := json.Marshal(CodeReviewResult{
		IsSingleCodeBlock:      *args.IsSingleCodeBlock,
		IsCorrectLanguage:      *args.IsCorrectLanguage,
		IsTopLevelStatement:    *args.IsTopLevelStatement,
		IsPrintResultToConsole: *args.IsPrintResultToConsole,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
