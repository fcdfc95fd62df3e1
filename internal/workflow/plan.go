package workflow

import (
	"context"
	"log/slog"

	"docbatch/internal/config"
	"docbatch/internal/logging"
	"docbatch/internal/manifest"
	"docbatch/internal/partition"
	"docbatch/internal/services"
)

// PlanPartition loads the manifest named by cfg and returns the items owned
// by cfg's partition. Shuffling, when enabled, happens before the range is
// computed.
func PlanPartition(ctx context.Context, cfg *config.Config, reader manifest.Reader, logger *slog.Logger) (Assignment, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	items, err := manifest.Load(ctx, reader, cfg.Job.Manifest)
	if err != nil {
		return Assignment{}, err
	}

	if cfg.Job.Shuffle {
		if cfg.Job.ShuffleSeed == nil {
			logging.WarnWithContext(logger, "shuffling without a seed", "unseeded_shuffle",
				logging.String(logging.FieldErrorHint, "set job.shuffle_seed so every worker computes the same order"),
				logging.String(logging.FieldImpact, "partitions may overlap across workers; leases still prevent duplicate writes"),
			)
		}
		items = partition.Shuffle(items, cfg.Job.ShuffleSeed)
	}

	selected, rng, err := partition.Select(items, cfg.Job.NumParts, cfg.Job.PartIndex)
	if err != nil {
		return Assignment{}, services.Wrap(services.ErrConfiguration, "workflow", "plan", "partition", err)
	}
	return Assignment{
		Total:     len(items),
		NumParts:  cfg.Job.NumParts,
		PartIndex: cfg.Job.PartIndex,
		Range:     rng,
		Items:     selected,
		Shuffled:  cfg.Job.Shuffle,
	}, nil
}
