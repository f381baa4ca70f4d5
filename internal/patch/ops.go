package patch

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jonathan/resume-optimizer/internal/document"
	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// ApplyOps applies path-addressed edits to a copy of doc and returns the
// edited copy. Either every op applies and the result is a valid document,
// or an error is returned and doc is untouched.
func ApplyOps(doc *types.Document, ops []types.EditOp) (*types.Document, error) {
	work := document.Clone(doc)
	document.Normalize(work)

	data, err := json.Marshal(work)
	if err != nil {
		return nil, &ApplyError{Message: "failed to encode document", Cause: err}
	}

	for i, op := range ops {
		data, err = applyOp(data, op)
		if err != nil {
			return nil, &OpError{Index: i, Op: op.Op, Path: op.Path, Message: "failed to apply", Cause: err}
		}
	}

	if err := schemas.ValidateDocument(data); err != nil {
		return nil, &ApplyError{Message: "edited document is invalid", Cause: err}
	}

	var out types.Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ApplyError{Message: "failed to decode edited document", Cause: err}
	}
	document.Normalize(&out)

	if err := document.CheckInvariants(&out); err != nil {
		return nil, &ApplyError{Message: "edited document breaks keyword uniqueness", Cause: err}
	}
	return &out, nil
}

func applyOp(data []byte, op types.EditOp) ([]byte, error) {
	tokens, err := parsePointer(op.Path)
	if err != nil {
		return nil, err
	}
	parentTokens, last := tokens[:len(tokens)-1], tokens[len(tokens)-1]

	parent := gjson.ParseBytes(data)
	if len(parentTokens) > 0 {
		parent = gjson.GetBytes(data, gjsonPath(parentTokens))
	}
	if !parent.Exists() {
		return nil, fmt.Errorf("parent of %s does not exist", op.Path)
	}

	value, err := json.Marshal(op.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}

	switch op.Op {
	case types.OpAdd:
		return addValue(data, parent, parentTokens, last, value)
	case types.OpReplace:
		if last == "-" {
			return nil, fmt.Errorf("replace cannot target the array end")
		}
		if !gjson.GetBytes(data, gjsonPath(tokens)).Exists() {
			return nil, fmt.Errorf("replace target %s does not exist", op.Path)
		}
		return sjson.SetRawBytes(data, gjsonPath(tokens), value)
	default:
		return nil, fmt.Errorf("unsupported op %q", op.Op)
	}
}

func addValue(data []byte, parent gjson.Result, parentTokens []string, last string, value []byte) ([]byte, error) {
	switch {
	case parent.IsArray():
		elems := parent.Array()
		if last == "-" {
			return sjson.SetRawBytes(data, gjsonPath(append(slices.Clone(parentTokens), "-1")), value)
		}
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx > len(elems) {
			return nil, fmt.Errorf("array index %q out of range", last)
		}
		raw := make([]string, 0, len(elems)+1)
		for _, e := range elems[:idx] {
			raw = append(raw, e.Raw)
		}
		raw = append(raw, string(value))
		for _, e := range elems[idx:] {
			raw = append(raw, e.Raw)
		}
		return sjson.SetRawBytes(data, gjsonPath(parentTokens), []byte("["+strings.Join(raw, ",")+"]"))
	case parent.IsObject():
		return sjson.SetRawBytes(data, gjsonPath(append(slices.Clone(parentTokens), last)), value)
	default:
		return nil, fmt.Errorf("parent is not an object or array")
	}
}

// parsePointer splits a JSON Pointer into unescaped reference tokens.
func parsePointer(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") || len(path) < 2 {
		return nil, fmt.Errorf("invalid path %q", path)
	}
	parts := strings.Split(path[1:], "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts, nil
}

// gjsonPath joins tokens into a gjson/sjson path, escaping path syntax.
func gjsonPath(tokens []string) string {
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		var sb strings.Builder
		for _, r := range t {
			if !isPlainPathRune(r) {
				sb.WriteByte('\\')
			}
			sb.WriteRune(r)
		}
		escaped[i] = sb.String()
	}
	return strings.Join(escaped, ".")
}

func isPlainPathRune(r rune) bool {
	return r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r > 127
}
