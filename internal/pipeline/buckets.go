package pipeline

// DateBucket classifies a record's canonical date against the batch
// reference date, determining skip/upsert/insert behavior
type DateBucket int

const (
	// BucketHistorical means date < today: historical data is never re-imported
	BucketHistorical DateBucket = iota
	// BucketToday means date == today: insert-or-update on the natural key
	BucketToday
	// BucketFuture means date > today: insert unconditionally
	BucketFuture
)

// Classify buckets a canonical YYYY-MM-DD date against today. Lexicographic
// comparison is exact for the canonical layout.
func Classify(date, today string) DateBucket {
	switch {
	case date < today:
		return BucketHistorical
	case date > today:
		return BucketFuture
	}
	return BucketToday
}
