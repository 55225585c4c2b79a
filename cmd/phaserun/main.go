// Phaserun runs a configured chain of map and reduce phases over a
// JSON batch of records, standing in for the distributed pipeline so
// a chain can be tried out locally.
//
//	phaserun -chain chain.yaml < records.json
package main

import (
	"encoding/json"
	"flag"
	"os"

	"go.uber.org/zap"
)

func main() {
	var chainPath string
	var pretty bool
	flag.StringVar(&chainPath, "chain", "", "YAML file describing the phase chain")
	flag.BoolVar(&pretty, "pretty", false, "indent the JSON output")
	flag.Parse()

	zapLogger, _ := configLogger().Build()
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	if chainPath == "" {
		zap.S().Fatal("Usage: phaserun -chain chain.yaml < records.json")
	}

	specs, err := loadChain(chainPath)
	if err != nil {
		zap.S().Fatalw("Cannot load chain", "path", chainPath, "error", err)
	}

	batch, err := decodeRecords(os.Stdin)
	if err != nil {
		zap.S().Fatalw("Cannot decode input records", "error", err)
	}

	for i, spec := range specs {
		batch, err = spec.Run(batch)
		if err != nil {
			zap.S().Fatalw("Phase failed", "phase", i, "kind", spec.Kind.String(), "error", err)
		}
		zap.S().Debugw("Phase complete", "phase", i, "kind", spec.Kind.String(), "records", len(batch))
	}

	out := make([]any, len(batch))
	for i, v := range batch {
		out[i] = encodeRecord(v)
	}
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		zap.S().Fatalw("Cannot write output", "error", err)
	}
}

func configLogger() zap.Config {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.Encoding = "console"
	return config
}
