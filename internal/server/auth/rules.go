package auth

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

// ruleFile is the YAML layout: one list per level, each entry
// "METHOD[,METHOD...] /path/pattern".
type ruleFile struct {
	Admin         []string `yaml:"admin"`
	Authenticated []string `yaml:"authenticated"`
	Public        []string `yaml:"public"`
}

// LoadRules parses a YAML rule document.
func LoadRules(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f ruleFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("policy document is empty")
		}
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	var rules []Rule
	for _, tier := range []struct {
		level   Level
		entries []string
	}{
		{LevelAdmin, f.Admin},
		{LevelAuthenticated, f.Authenticated},
		{LevelPublic, f.Public},
	} {
		for _, entry := range tier.entries {
			fields := strings.Fields(entry)
			if len(fields) != 2 {
				return nil, fmt.Errorf("policy entry %q: want \"METHOD /path\"", entry)
			}
			for _, m := range strings.Split(fields[0], ",") {
				rules = append(rules, Rule{Method: m, Pattern: fields[1], Level: tier.level})
			}
		}
	}
	return rules, nil
}

// DefaultRules returns the embedded route table.
func DefaultRules() ([]Rule, error) {
	return LoadRules(bytes.NewReader(defaultPolicy))
}

// LoadPolicy builds the policy from path, or from the embedded table when
// path is empty.
func LoadPolicy(path string) (*Policy, error) {
	var (
		rules []Rule
		err   error
	)
	if path == "" {
		rules, err = DefaultRules()
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open policy: %w", err)
		}
		defer f.Close()
		rules, err = LoadRules(f)
	}
	if err != nil {
		return nil, err
	}
	return NewPolicy(rules)
}
