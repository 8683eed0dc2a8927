package txdecoder

import "fmt"

// State 解码流程状态
type State int

const (
	StateFetching State = iota
	StateDecodingCall
	StateDecodingLogs
	StateExtractingTransfers
	StatePricing
	StateSummarizing
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateFetching:            "Fetching",
	StateDecodingCall:        "DecodingCall",
	StateDecodingLogs:        "DecodingLogs",
	StateExtractingTransfers: "ExtractingTransfers",
	StatePricing:             "Pricing",
	StateSummarizing:         "Summarizing",
	StateDone:                "Done",
	StateFailed:              "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

// Terminal 是否为终止状态
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
