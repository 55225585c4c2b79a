package main

import (
	"os"
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Quviq/riak-kv/pkg/index"
	"github.com/Quviq/riak-kv/pkg/mapfn"
	"github.com/Quviq/riak-kv/pkg/phase"
	"github.com/Quviq/riak-kv/pkg/reduce"
)

type chainConfig struct {
	Phases []phaseConfig `yaml:"phases"`
}

// phaseConfig is the union of all per-function settings; each function
// reads only the fields it cares about.
type phaseConfig struct {
	Function    string `yaml:"function"`
	KeepResults bool   `yaml:"keep_results"`
	NotFound    string `yaml:"not_found"`
	Insert      []any  `yaml:"insert"`
	InputTerm   string `yaml:"input_term"`
	OutputTerm  string `yaml:"output_term"`
	Keep        string `yaml:"keep"`
	SkipBytes   int    `yaml:"skip_bytes"`
	BitWidth    int    `yaml:"bit_width"`
	Pattern     string `yaml:"pattern"`
	Low         any    `yaml:"low"`
	High        any    `yaml:"high"`
}

func loadChain(path string) ([]phase.Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading chain file")
	}
	var cfg chainConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing chain file")
	}
	if len(cfg.Phases) == 0 {
		return nil, errors.New("chain file has no phases")
	}
	specs := make([]phase.Spec, len(cfg.Phases))
	for i, pc := range cfg.Phases {
		spec, err := pc.spec()
		if err != nil {
			return nil, errors.Wrapf(err, "phase %d", i)
		}
		specs[i] = spec
	}
	return specs, nil
}

func (pc phaseConfig) spec() (phase.Spec, error) {
	switch pc.Function {
	case "map_identity":
		return phase.NewMap(mapfn.Identity, nil, pc.KeepResults), nil
	case "map_object_value":
		action, err := pc.action()
		if err != nil {
			return phase.Spec{}, err
		}
		return phase.NewMap(mapfn.ObjectValue, action, pc.KeepResults), nil
	case "map_object_value_list":
		action, err := pc.action()
		if err != nil {
			return phase.Spec{}, err
		}
		return phase.NewMap(mapfn.ObjectValueList, action, pc.KeepResults), nil
	case "reduce_identity":
		return phase.NewReduce(reduce.Identity, nil, pc.KeepResults), nil
	case "reduce_set_union":
		return phase.NewReduce(reduce.SetUnion, nil, pc.KeepResults), nil
	case "reduce_sort":
		return phase.NewReduce(reduce.Sort, nil, pc.KeepResults), nil
	case "reduce_sum":
		return phase.NewReduce(reduce.Sum, nil, pc.KeepResults), nil
	case "reduce_plist_sum":
		return phase.NewReduce(reduce.PlistSum, nil, pc.KeepResults), nil
	case "reduce_count_inputs":
		return phase.NewReduce(reduce.CountInputs, nil, pc.KeepResults), nil
	case "reduce_string_to_integer":
		return phase.NewReduce(reduce.StringToInteger, nil, pc.KeepResults), nil
	case "reduce_index_identity":
		return phase.NewReduce(index.Identity, nil, pc.KeepResults), nil
	case "reduce_index_extract_integer":
		keep, err := pc.keepPolicy()
		if err != nil {
			return phase.Spec{}, err
		}
		arg := index.ExtractIntegerArgs{
			InputTerm:  pc.InputTerm,
			OutputTerm: pc.OutputTerm,
			Keep:       keep,
			SkipBytes:  pc.SkipBytes,
			BitWidth:   pc.BitWidth,
		}
		return phase.NewReduce(index.ExtractInteger, arg, pc.KeepResults), nil
	case "reduce_index_by_range":
		keep, err := pc.keepPolicy()
		if err != nil {
			return phase.Spec{}, err
		}
		arg := index.RangeArgs{InputTerm: pc.InputTerm, Keep: keep, Low: pc.Low, High: pc.High}
		return phase.NewReduce(index.ByRange, arg, pc.KeepResults), nil
	case "reduce_index_regex":
		keep, err := pc.keepPolicy()
		if err != nil {
			return phase.Spec{}, err
		}
		re, err := regexp.Compile(pc.Pattern)
		if err != nil {
			return phase.Spec{}, errors.Wrapf(err, "compiling pattern %q", pc.Pattern)
		}
		arg := index.RegexArgs{InputTerm: pc.InputTerm, Keep: keep, Pattern: re}
		return phase.NewReduce(index.Regex, arg, pc.KeepResults), nil
	case "reduce_index_max":
		keep, err := pc.keepPolicy()
		if err != nil {
			return phase.Spec{}, err
		}
		arg := index.MaxArgs{InputTerm: pc.InputTerm, Keep: keep}
		return phase.NewReduce(index.Max, arg, pc.KeepResults), nil
	}
	return phase.Spec{}, errors.Errorf("unknown phase function %q", pc.Function)
}

func (pc phaseConfig) action() (any, error) {
	switch pc.NotFound {
	case "", "filter":
		return mapfn.Filter{}, nil
	case "include":
		return mapfn.IncludeNotFound{}, nil
	case "keydata":
		return mapfn.IncludeKeyData{}, nil
	case "insert":
		return mapfn.Insert{Value: pc.Insert}, nil
	}
	return nil, errors.Errorf("unknown not_found action %q", pc.NotFound)
}

func (pc phaseConfig) keepPolicy() (index.KeepPolicy, error) {
	switch pc.Keep {
	case "", "all":
		return index.KeepAll, nil
	case "this":
		return index.KeepThis, nil
	}
	return index.KeepAll, errors.Errorf("unknown keep policy %q", pc.Keep)
}
