package jobs

const TaskPersistAdvisory = "advisory:persist"

type PersistAdvisoryPayload struct {
	AdvisoryID string `json:"advisory_id"`
	FarmID     string `json:"farm_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	AskedUnix  int64  `json:"asked_unix"`
}
