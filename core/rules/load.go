package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// A rule file is a flat YAML list of rule maps — not wrapped in a
// top-level key — so it can be authored directly as a sequence of
// documents like:
//
//	- id: 17
//	  if:
//	    merchant: "^starbucks"
//	  then:
//	    category: "Expenses:Food:Coffee"

type ruleSchema struct {
	ID       int64      `yaml:"id"`
	Disabled bool       `yaml:"disabled"`
	If       ifSchema   `yaml:"if"`
	Then     thenSchema `yaml:"then"`
}

type ifSchema struct {
	Merchant string            `yaml:"merchant"`
	Account  string            `yaml:"account"`
	Category string            `yaml:"category"`
	Metadata map[string]string `yaml:"metadata"`
}

// thenSchema is the single transforms mapping for one rule; Labels
// accepts either a scalar token or a list, per the rule file grammar.
type thenSchema struct {
	Category string            `yaml:"category"`
	Labels   labelTokens       `yaml:"labels"`
	Memo     string            `yaml:"memo"`
	Metadata map[string]string `yaml:"metadata"`
}

// labelTokens decodes a "labels" entry that may be a bare scalar or a
// list of scalars.
type labelTokens []string

func (l *labelTokens) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = []string{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("labels: expected a scalar or a list")
	}
}

// LoadDir parses every *.yaml/*.yml file under dir into Rules, then
// validates that rule ids are globally unique across all files. A file
// that fails to parse or validate fails the whole load, and the error
// lists every such file. A collision likewise fails the whole load and
// names every offending file, so a
// user editing one rule file can see at a glance which sibling file
// clashes with it.
func LoadDir(dir string) ([]Rule, error) {
	matches, err := collectRuleFiles(dir)
	if err != nil {
		return nil, err
	}

	var all []Rule
	var loadErrs []string
	owners := make(map[int64][]string) // id -> files that declare it
	for _, path := range matches {
		rules, err := loadFile(path)
		if err != nil {
			loadErrs = append(loadErrs, fmt.Sprintf("load %s: %v", path, err))
			continue
		}
		for _, r := range rules {
			owners[r.ID] = append(owners[r.ID], path)
		}
		all = append(all, rules...)
	}
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("invalid rule files:\n%s", strings.Join(loadErrs, "\n"))
	}

	var conflicts []string
	for id, files := range owners {
		if len(files) > 1 {
			conflicts = append(conflicts, fmt.Sprintf("%d: %s", id, strings.Join(files, ", ")))
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, fmt.Errorf("duplicate rule ids across files:\n%s", strings.Join(conflicts, "\n"))
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func collectRuleFiles(dir string) ([]string, error) {
	var out []string
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rule directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func loadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schemas []ruleSchema
	if err := yaml.Unmarshal(data, &schemas); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	out := make([]Rule, 0, len(schemas))
	seen := make(map[int64]bool, len(schemas))
	for i, rs := range schemas {
		if rs.ID == 0 {
			return nil, fmt.Errorf("rule at index %d: missing or zero id", i)
		}
		if seen[rs.ID] {
			return nil, fmt.Errorf("rule %d: duplicate id within file", rs.ID)
		}
		seen[rs.ID] = true

		r, err := toRule(rs, path)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rs.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func toRule(rs ruleSchema, path string) (Rule, error) {
	cond := Precondition{}
	if rs.If.Merchant != "" {
		re, err := regexp.Compile("(?i)" + rs.If.Merchant)
		if err != nil {
			return Rule{}, fmt.Errorf("if.merchant: %w", err)
		}
		cond.MerchantRegexp = re
	}
	if rs.If.Account != "" {
		re, err := regexp.Compile(rs.If.Account)
		if err != nil {
			return Rule{}, fmt.Errorf("if.account: %w", err)
		}
		cond.AccountRegexp = re
	}
	if rs.If.Category != "" {
		re, err := regexp.Compile(rs.If.Category)
		if err != nil {
			return Rule{}, fmt.Errorf("if.category: %w", err)
		}
		cond.CategoryRegexp = re
	}
	if len(rs.If.Metadata) > 0 {
		cond.Metadata = make(map[string]*regexp.Regexp, len(rs.If.Metadata))
		for k, pattern := range rs.If.Metadata {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return Rule{}, fmt.Errorf("if.metadata[%s]: %w", k, err)
			}
			cond.Metadata[k] = re
		}
	}
	if cond.IsZero() {
		return Rule{}, fmt.Errorf("if: no constraints given, would match every transaction")
	}

	transforms, err := toTransforms(rs.Then)
	if err != nil {
		return Rule{}, fmt.Errorf("then: %w", err)
	}
	if len(transforms) == 0 {
		return Rule{}, fmt.Errorf("then: at least one transform is required")
	}

	return Rule{ID: rs.ID, If: cond, Then: transforms, Disabled: rs.Disabled, SourceFile: path}, nil
}

// toTransforms builds the ordered transform list from one rule's then
// mapping: category, then labels, then memo, then metadata, matching
// the rule file grammar's worked example order.
func toTransforms(ts thenSchema) ([]Transform, error) {
	var out []Transform
	if ts.Category != "" {
		out = append(out, Transform{Kind: SetCategory, Category: ts.Category})
	}
	if len(ts.Labels) > 0 {
		ops, err := parseLabelOps(ts.Labels)
		if err != nil {
			return nil, err
		}
		out = append(out, Transform{Kind: SetLabels, LabelOps: ops})
	}
	if ts.Memo != "" {
		out = append(out, Transform{Kind: SetMemo, Memo: ts.Memo})
	}
	if len(ts.Metadata) > 0 {
		out = append(out, Transform{Kind: SetMetadata, Metadata: ts.Metadata})
	}
	return out, nil
}

// parseLabelOps reads "+tag" (or bare "tag") as an add and "-tag" as a
// remove.
func parseLabelOps(tokens []string) ([]LabelOp, error) {
	ops := make([]LabelOp, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			return nil, fmt.Errorf("labels: empty token")
		}
		switch tok[0] {
		case '-':
			ops = append(ops, LabelOp{Token: tok[1:], Remove: true})
		case '+':
			ops = append(ops, LabelOp{Token: tok[1:]})
		default:
			ops = append(ops, LabelOp{Token: tok})
		}
	}
	return ops, nil
}
