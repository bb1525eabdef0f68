package config

const (
	// TopicDocument carries one event per processed document.
	TopicDocument = "docsync.document"

	// TopicRun carries the summary of each finished run.
	TopicRun = "docsync.run"
)
