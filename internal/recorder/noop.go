package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRegime(_ *RegimeSnapshot) error            { return nil }
func (n *NoopRecorder) RecordRebalance(_ *RebalanceRecord) error        { return nil }
func (n *NoopRecorder) RecordPublication(_ *Publication) error          { return nil }
func (n *NoopRecorder) RecentPublications(_ int) ([]Publication, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                    { return nil }
