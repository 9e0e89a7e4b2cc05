package transfer

// Status is a transfer's lifecycle state (§3, §6).
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusSending    Status = "sending"
	StatusReceiving  Status = "receiving"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

func (s Status) terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Direction distinguishes inbound from outbound transfers.
type Direction string

const (
	DirSend    Direction = "send"
	DirReceive Direction = "receive"
)

// ProgressEvent is the throttled transfer-progress event of §6.
type ProgressEvent struct {
	TransferID string
	Status     Status
	Filename   string
	Progress   int // 0-100
	Bytes      int64
	Total      int64
	SpeedMBps  float64
}

// CompleteEvent is transfer-complete (§6). Path is set on the receive side only.
type CompleteEvent struct {
	TransferID string
	Filename   string
	Path       string
}

// ErrorEvent is transfer-error (§6).
type ErrorEvent struct {
	TransferID string
	Error      string
}

// Callbacks receives transfer events. Nil fields are treated as no-ops, the
// same pattern used by pkg/discovery.Callbacks.
type Callbacks struct {
	OnProgress func(ProgressEvent)
	OnComplete func(CompleteEvent)
	OnError    func(ErrorEvent)
}

func (c Callbacks) progress(e ProgressEvent) {
	if c.OnProgress != nil {
		c.OnProgress(e)
	}
}
func (c Callbacks) complete(e CompleteEvent) {
	if c.OnComplete != nil {
		c.OnComplete(e)
	}
}
func (c Callbacks) errorEvt(e ErrorEvent) {
	if c.OnError != nil {
		c.OnError(e)
	}
}

func progressFor(id string, status Status, filename string, bytes, total int64, speedMBps float64) ProgressEvent {
	pct := 0
	if total > 0 {
		pct = int(bytes * 100 / total)
		if pct > 100 {
			pct = 100
		}
	}
	return ProgressEvent{
		TransferID: id,
		Status:     status,
		Filename:   filename,
		Progress:   pct,
		Bytes:      bytes,
		Total:      total,
		SpeedMBps:  speedMBps,
	}
}
