package config

// Overrides carries command-line values that take precedence over the file.
// Nil fields leave the loaded value untouched.
type Overrides struct {
	Manifest       *string
	NumParts       *int
	PartIndex      *int
	Force          *bool
	Shuffle        *bool
	ShuffleSeed    *int64
	ResultRoot     *string
	CandidateRoots []string
	LeaseEndpoint  *string
	InferenceURL   *string
	OuterSize      *int
	InnerSize      *int
	Workers        *int
	LogLevel       *string
}

// Apply copies the set overrides into c, then re-normalizes and re-validates.
func (o Overrides) Apply(c *Config) error {
	if o.Manifest != nil {
		c.Job.Manifest = *o.Manifest
	}
	if o.NumParts != nil {
		c.Job.NumParts = *o.NumParts
	}
	if o.PartIndex != nil {
		c.Job.PartIndex = *o.PartIndex
	}
	if o.Force != nil {
		c.Job.Force = *o.Force
	}
	if o.Shuffle != nil {
		c.Job.Shuffle = *o.Shuffle
	}
	if o.ShuffleSeed != nil {
		seed := *o.ShuffleSeed
		c.Job.ShuffleSeed = &seed
	}
	if o.ResultRoot != nil {
		c.Job.ResultRoot = *o.ResultRoot
	}
	if len(o.CandidateRoots) > 0 {
		c.Job.CandidateRoots = append([]string(nil), o.CandidateRoots...)
	}
	if o.LeaseEndpoint != nil {
		c.Lease.Endpoint = *o.LeaseEndpoint
	}
	if o.InferenceURL != nil {
		c.Inference.Endpoint = *o.InferenceURL
	}
	if o.OuterSize != nil {
		c.Batch.OuterSize = *o.OuterSize
	}
	if o.InnerSize != nil {
		c.Batch.InnerSize = *o.InnerSize
	}
	if o.Workers != nil {
		c.Batch.Workers = *o.Workers
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}
