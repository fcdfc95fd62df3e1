package config

const (
	defaultStateDir              = "~/.local/share/docbatch/state"
	defaultLogDir                = "~/.local/share/docbatch/logs"
	defaultStopSentinel          = ".current_end.sign"
	defaultTaskName              = "layoutV6"
	defaultLeaseTimeoutSeconds   = 3600
	defaultLeaseRequestTimeout   = 10
	defaultOuterBatchSize        = 32
	defaultInnerBatchSize        = 256
	defaultWorkers               = 8
	defaultInferenceTimeout      = 0
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	leaseEndpointEnv             = "DOCBATCH_LEASE_ENDPOINT"
	inferenceEndpointEnv         = "DOCBATCH_INFERENCE_ENDPOINT"
	MemoryLeaseEndpoint          = "memory://"
	inlineFormulaCategoryID      = 13
	displayedFormulaCategoryID   = 14
	maxRecommendedCandidateRoots = 16
	defaultInPlaceMarker         = "layoutV"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
			StopSentinel: defaultStopSentinel,
		},
		Job: Job{
			NumParts:      1,
			TaskName:      defaultTaskName,
			InPlaceMarker: defaultInPlaceMarker,
		},
		Lease: Lease{
			TimeoutSeconds:        defaultLeaseTimeoutSeconds,
			RequestTimeoutSeconds: defaultLeaseRequestTimeout,
		},
		Batch: Batch{
			OuterSize: defaultOuterBatchSize,
			InnerSize: defaultInnerBatchSize,
			Workers:   defaultWorkers,
		},
		Inference: Inference{
			TimeoutSeconds: defaultInferenceTimeout,
			NormalizeLatex: true,
		},
		Recognition: Recognition{
			CategoryIDs: []int{inlineFormulaCategoryID, displayedFormulaCategoryID},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
