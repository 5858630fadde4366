package settings

// Overlay is one configuration tier. Nil fields inherit from the next tier
// down, so a project file can override a single field while keeping the rest
// of the application defaults.
type Overlay struct {
	Model   *string         `yaml:"model,omitempty" json:"model,omitempty"`
	Size    *string         `yaml:"size,omitempty" json:"size,omitempty"`
	Quality *string         `yaml:"quality,omitempty" json:"quality,omitempty"`
	Storage *StorageOverlay `yaml:"storage,omitempty" json:"storage,omitempty"`
}

// StorageOverlay configures where project artifacts live and where finished
// runs are mirrored to.
type StorageOverlay struct {
	Backend    *string `yaml:"backend,omitempty" json:"backend,omitempty"`
	LocalRoot  *string `yaml:"local_root,omitempty" json:"local_root,omitempty"`
	S3Mirror   *string `yaml:"s3_mirror,omitempty" json:"s3_mirror,omitempty"`
	SyncTarget *string `yaml:"sync_target,omitempty" json:"sync_target,omitempty"`
}

// IsZero reports whether the overlay sets no field at all.
func (o Overlay) IsZero() bool {
	if o.Model != nil || o.Size != nil || o.Quality != nil {
		return false
	}
	if o.Storage == nil {
		return true
	}
	s := o.Storage
	return s.Backend == nil && s.LocalRoot == nil && s.S3Mirror == nil && s.SyncTarget == nil
}

// pick returns the first set value among the tiers, most specific first.
func pick(fallback string, tiers ...*string) string {
	for _, t := range tiers {
		if t != nil {
			return *t
		}
	}
	return fallback
}

func storageField(o Overlay, get func(*StorageOverlay) *string) *string {
	if o.Storage == nil {
		return nil
	}
	return get(o.Storage)
}
