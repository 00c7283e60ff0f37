package inference

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// forbiddenQueryWords are statement keywords a complex-rule query must not
// contain; rules only read graph state.
var forbiddenQueryWords = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|truncate|create|grant)\b`)

// parameterPattern matches named parameters of the form :name in a query
var parameterPattern = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// deriveComplex executes the rule's pre-validated declarative query and maps
// result columns into edge records using the rule's column mapping.
func (e *Engine) deriveComplex(ctx context.Context, rule *model.ComplexRule) ([]*model.Edge, error) {
	if !rule.Enabled {
		return nil, nil
	}
	if e.queries == nil {
		return nil, fmt.Errorf("complex rule %q requires a query runner", rule.Name)
	}
	if err := validateQuery(rule.Query); err != nil {
		return nil, fmt.Errorf("complex rule %q: %w", rule.Name, err)
	}

	sourceColumn, ok := rule.ColumnMapping["source"]
	if !ok {
		return nil, fmt.Errorf("complex rule %q maps no source column", rule.Name)
	}
	targetColumn, ok := rule.ColumnMapping["target"]
	if !ok {
		return nil, fmt.Errorf("complex rule %q maps no target column", rule.Name)
	}

	query, args, err := bindParameters(rule.Query, rule.Parameters)
	if err != nil {
		return nil, fmt.Errorf("complex rule %q: %w", rule.Name, err)
	}

	rows, err := e.queries.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("complex rule %q: %w", rule.Name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	edgeType := rule.ColumnMapping["type"]
	confidenceColumn := rule.ColumnMapping["confidence"]

	var edges []*model.Edge
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := map[string]interface{}{}
		for i, column := range columns {
			row[column] = normalizeScanValue(values[i])
		}

		sourceID, _ := row[sourceColumn].(string)
		targetID, _ := row[targetColumn].(string)
		if sourceID == "" || targetID == "" {
			continue
		}

		edge := &model.Edge{
			SourceID:   sourceID,
			TargetID:   targetID,
			Type:       strings.ToUpper(rule.Name),
			Confidence: rule.Confidence,
			Properties: model.NewProperties(),
		}

		if typeValue, ok := row[edgeType].(string); ok && typeValue != "" {
			edge.Type = typeValue
		}
		if confidence, ok := toFloat(row[confidenceColumn]); ok {
			edge.Confidence = confidence
		}

		// Remaining mapped columns become edge properties
		mapped := map[string]bool{sourceColumn: true, targetColumn: true, edgeType: true, confidenceColumn: true}
		for i, column := range columns {
			if mapped[column] || values[i] == nil {
				continue
			}
			edge.Properties.Set(column, model.FromInterface(row[column]))
		}
		edge.Properties.Set("inferred", model.Boolean(true))
		edge.Properties.Set("rule", model.String(rule.Name))

		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return edges, nil
}

// validateQuery accepts a single read-only statement
func validateQuery(query string) error {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if trimmed == "" {
		return fmt.Errorf("query is empty")
	}
	lowered := strings.ToLower(trimmed)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return fmt.Errorf("query must be a read-only select")
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("query must be a single statement")
	}
	if match := forbiddenQueryWords.FindString(trimmed); match != "" {
		return fmt.Errorf("query contains forbidden keyword %q", strings.ToLower(match))
	}
	return nil
}

// bindParameters rewrites :name placeholders into positional arguments
func bindParameters(query string, parameters map[string]string) (string, []interface{}, error) {
	names := parameterPattern.FindAllStringSubmatch(query, -1)
	if len(names) == 0 {
		return query, nil, nil
	}

	seen := map[string]int{}
	var ordered []string
	for _, match := range names {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		if _, ok := parameters[name]; !ok {
			return "", nil, fmt.Errorf("query references unbound parameter %q", name)
		}
		seen[name] = len(ordered) + 1
		ordered = append(ordered, name)
	}

	// Replace longer names first so one name is never a prefix casualty
	byLength := make([]string, len(ordered))
	copy(byLength, ordered)
	sort.Slice(byLength, func(i, j int) bool { return len(byLength[i]) > len(byLength[j]) })

	bound := query
	for _, name := range byLength {
		bound = strings.ReplaceAll(bound, ":"+name, "$"+strconv.Itoa(seen[name]))
	}

	args := make([]interface{}, len(ordered))
	for i, name := range ordered {
		args[i] = parameters[name]
	}

	return bound, args, nil
}

func normalizeScanValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toFloat(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case int64:
		return float64(value), true
	case string:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
