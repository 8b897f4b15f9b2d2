package sequencer

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/droidwrap/droidwrap/internal/models"
)

//go:embed pipeline.yaml
var pipelineYAML []byte

type pipelineFile struct {
	Stages map[string][]string `yaml:"stages"`
}

var (
	pipelineOnce sync.Once
	pipeline     pipelineFile
	pipelineErr  error
)

func loadPipeline() (pipelineFile, error) {
	pipelineOnce.Do(func() {
		pipelineErr = yaml.Unmarshal(pipelineYAML, &pipeline)
	})
	return pipeline, pipelineErr
}

// StagesFor returns the staged step list for a wrapper strategy, in the
// order the sequencer will emit them.
func StagesFor(w models.WrapperStrategy) ([]string, error) {
	p, err := loadPipeline()
	if err != nil {
		return nil, fmt.Errorf("parsing pipeline definition: %w", err)
	}
	stages, ok := p.Stages[string(w)]
	if !ok || len(stages) == 0 {
		return nil, fmt.Errorf("no pipeline stages defined for wrapper %q", w)
	}
	out := make([]string, len(stages))
	copy(out, stages)
	return out, nil
}
