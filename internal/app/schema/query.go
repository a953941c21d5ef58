package schema

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/crmarques/prismafmt/faults"
	"github.com/itchyny/gojq"
)

var queryCodeCache sync.Map

// ApplyQuery evaluates a jq expression against a JSON payload returned by the
// engine. A single result is rendered as-is, several results as an array.
func ApplyQuery(ctx context.Context, payload string, expression string) (string, error) {
	trimmedExpression := strings.TrimSpace(expression)
	if trimmedExpression == "" {
		return payload, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return "", faults.NewTypedError(faults.ValidationError, "engine output is not json and cannot be queried", err)
	}

	code, err := cachedQueryCode(trimmedExpression)
	if err != nil {
		return "", faults.NewTypedError(faults.ValidationError, "invalid jq expression", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	iterator := code.RunWithContext(ctx, decoded)
	results := make([]any, 0, 1)
	for {
		value, ok := iterator.Next()
		if !ok {
			break
		}
		if valueErr, isErr := value.(error); isErr {
			return "", faults.NewTypedError(faults.ValidationError, "failed to evaluate jq expression", valueErr)
		}
		results = append(results, value)
	}

	var output any = results
	if len(results) == 1 {
		output = results[0]
	}
	encoded, err := json.Marshal(output)
	if err != nil {
		return "", faults.NewTypedError(faults.InternalError, "failed to encode jq result", err)
	}
	return string(encoded), nil
}

func cachedQueryCode(expression string) (*gojq.Code, error) {
	if cached, ok := queryCodeCache.Load(expression); ok {
		if typed, ok := cached.(*gojq.Code); ok && typed != nil {
			return typed, nil
		}
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}

	actual, _ := queryCodeCache.LoadOrStore(expression, code)
	typed, _ := actual.(*gojq.Code)
	if typed == nil {
		return code, nil
	}
	return typed, nil
}
