package domain

import "time"

// JobStatus is the lifecycle of one asynchronous pipeline run. Done and
// Failed are terminal; a record stuck in Running past its TTL means the run
// was lost (process crash), which polling clients can distinguish from
// "still working" by the record's age.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is the durable status record for one pipeline run, polled through the
// status endpoint. Locations and Author are set only on completion.
type Job struct {
	ID        string     `json:"job_id"     bson:"job_id"`
	Link      string     `json:"link"       bson:"link"`
	PhoneNo   string     `json:"phoneNo"    bson:"phoneNo"`
	Status    JobStatus  `json:"status"     bson:"status"`
	Locations []Location `json:"locations"  bson:"locations"`
	Author    *string    `json:"author"     bson:"author"`
	Error     string     `json:"error,omitempty" bson:"error,omitempty"`
	CacheHit  bool       `json:"cache_hit"  bson:"cache_hit"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}
