package flowModel

type Flow string
type Stage string

const (
	FlowIngest   Flow = "Ingest"
	FlowAnswer   Flow = "QuestionAnswer"
	FlowAnalyze  Flow = "ImageAnalyze"
	FlowListDocs Flow = "ListDocuments"

	Received Stage = "received"
	Failed   Stage = "failed"

	//ingest
	Extracted Stage = "extracted"
	Chunked   Stage = "chunked"
	Embedded  Stage = "embedded"
	Indexed   Stage = "indexed"
	Published Stage = "published"

	//question answer
	IndexLoaded   Stage = "indexLoaded"
	QueryEmbedded Stage = "queryEmbedded"
	CacheHit      Stage = "cacheHit"
	Retrieved     Stage = "retrieved"
	Answered      Stage = "answered"
	VisionFused   Stage = "visionFused"
	Spoken        Stage = "spoken"
	Responded     Stage = "responded"

	//image analyze
	Validated      Stage = "validated"
	MoodClassified Stage = "moodClassified"
	Described      Stage = "described"
)

// metric status labels for a finished flow
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)
