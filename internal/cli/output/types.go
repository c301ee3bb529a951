package output

// ViolationOutput is one ordering violation found by check.
type ViolationOutput struct {
	Rule    string `json:"rule"`
	Step    int    `json:"step"`
	Before  int    `json:"before"`
	Message string `json:"message"`
}

// CheckOutput is the JSON result of check for one model.
type CheckOutput struct {
	App         string            `json:"app"`
	Model       string            `json:"model"`
	Steps       int               `json:"steps"`
	Constraints int               `json:"constraints"`
	Violations  []ViolationOutput `json:"violations"`
}

// VectorState is the simulated state of one interrupt or exception.
type VectorState struct {
	Name     string `json:"name"`
	Priority string `json:"priority"`
	// Logical is the priority the byte decodes to, 0 when unset.
	Logical int  `json:"logical"`
	Enabled bool `json:"enabled"`
}

// QueueState is the simulated free queue of one software task.
type QueueState struct {
	Task  string `json:"task"`
	Slots []int  `json:"slots"`
}

// SimulateOutput is the JSON result of simulate.
type SimulateOutput struct {
	App                string        `json:"app"`
	Executed           int           `json:"executed"`
	Taken              []string      `json:"taken"`
	Skipped            []string      `json:"skipped"`
	InterruptsDisabled bool          `json:"interrupts_disabled"`
	PeripheralsTaken   bool          `json:"peripherals_taken"`
	Interrupts         []VectorState `json:"interrupts"`
	Exceptions         []VectorState `json:"exceptions"`
	SHPR               [3]string     `json:"shpr"`
	SleepOnExit        bool          `json:"sleep_on_exit"`
	TickInterrupt      bool          `json:"tick_interrupt"`
	Queues             []QueueState  `json:"queues"`
	Trace              []string      `json:"trace,omitempty"`
}

// BuildOutput is one recorded build in history output.
type BuildOutput struct {
	ID           string `json:"id"`
	App          string `json:"app"`
	Model        string `json:"model"`
	Variant      string `json:"variant"`
	PriorityBits int    `json:"priority_bits"`
	Steps        int    `json:"steps"`
	Fingerprint  string `json:"fingerprint"`
	CreatedAt    string `json:"created_at"`
}

// HistoryOutput is the JSON result of history.
type HistoryOutput struct {
	Builds []BuildOutput `json:"builds"`
	Total  int           `json:"total"`
}

// HealthCheck is one doctor check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

// DoctorOutput is the JSON result of doctor.
type DoctorOutput struct {
	ConfigFile string        `json:"config_file"`
	Checks     []HealthCheck `json:"checks"`
	Errors     int           `json:"errors"`
	Warnings   int           `json:"warnings"`
}
