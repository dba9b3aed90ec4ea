// Package langpack loads a language pack from a YAML file: the
// condition/transform declaration rules.Spec already knows how to
// decode, plus the named pre/post text processors and reading
// normalizer a translator.LanguagePack needs,
// selected from langpack's fixed registry rather than declared inline.
package langpack

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lexiforge/lexiforge/pkg/lexiforge/internalerr"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/rules"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/textproc"
	"github.com/lexiforge/lexiforge/pkg/lexiforge/translator"
)

// File is the YAML shape of one language pack file: a rules.Spec
// (inlined) plus the processor/normalizer selections.
type File struct {
	rules.Spec        `yaml:",inline"`
	Preprocessors     []string `yaml:"preprocessors"`
	Postprocessors    []string `yaml:"postprocessors"`
	ReadingNormalizer string   `yaml:"readingNormalizer"`
}

// Load reads path and builds a *translator.LanguagePack from it.
func Load(path string) (*translator.LanguagePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.Wrap(internalerr.KindConfiguration, fmt.Sprintf("read language pack %q", path), err)
	}
	return LoadBytes(data)
}

// LoadBytes builds a *translator.LanguagePack from an in-memory YAML
// language pack file.
func LoadBytes(data []byte) (*translator.LanguagePack, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, internalerr.Wrap(internalerr.KindConfiguration, "parse language pack", err)
	}

	ruleSet, err := rules.Compile(f.Spec)
	if err != nil {
		return nil, err
	}

	pre, err := resolveProcessors(f.Preprocessors)
	if err != nil {
		return nil, err
	}
	post, err := resolveProcessors(f.Postprocessors)
	if err != nil {
		return nil, err
	}

	var normalizer translator.ReadingNormalizer
	if f.ReadingNormalizer != "" {
		n, ok := normalizerRegistry[f.ReadingNormalizer]
		if !ok {
			return nil, internalerr.New(internalerr.KindConfiguration,
				fmt.Sprintf("unknown reading normalizer %q", f.ReadingNormalizer))
		}
		normalizer = n
	}

	return translator.NewLanguagePack(ruleSet, pre, post, normalizer), nil
}

func resolveProcessors(names []string) ([]textproc.Processor, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]textproc.Processor, len(names))
	for i, name := range names {
		p, ok := processorRegistry[name]
		if !ok {
			return nil, internalerr.New(internalerr.KindConfiguration, fmt.Sprintf("unknown text processor %q", name))
		}
		out[i] = p
	}
	return out, nil
}
