package review

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// payloadValueLimit caps rendered payload values so raw model output doesn't
// swamp the rendering.
const payloadValueLimit = 120

// RenderTranscript formats the transcript for human reading, one line per
// event: timestamp, phase, agent, kind, then the payload as sorted key=value
// pairs with long values truncated.
func (s *Session) RenderTranscript() string {
	if len(s.Transcript) == 0 {
		return ""
	}

	var b strings.Builder
	for _, e := range s.Transcript {
		fmt.Fprintf(&b, "[%s] phase %d %s %s",
			e.Timestamp.UTC().Format(time.RFC3339), e.Phase, e.Agent, e.Kind)

		keys := make([]string, 0, len(e.Payload))
		for k := range e.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, truncateValue(fmt.Sprintf("%v", e.Payload[k])))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func truncateValue(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	runes := []rune(v)
	if len(runes) <= payloadValueLimit {
		return v
	}
	return string(runes[:payloadValueLimit]) + "..."
}
