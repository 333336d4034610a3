package comm

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/kit/log/level"
)

// saveVClock writes the current status of the vector clock to the
// hub's log file. It expects to be the only goroutine currently
// operating on the log file.
func (h *Hub) saveVClock() error {

	h.vclockLock.Lock()
	defer h.vclockLock.Unlock()

	var vclockString string
	for node, entry := range h.vclock {
		if vclockString == "" {
			vclockString = fmt.Sprintf("%s:%d", node, entry)
		} else {
			vclockString = fmt.Sprintf("%s;%s:%d", vclockString, node, entry)
		}
	}

	if h.vclockLog == nil {
		return nil
	}

	if _, err := h.vclockLog.Seek(0, os.SEEK_SET); err != nil {
		return err
	}

	n, err := h.vclockLog.WriteString(vclockString)
	if err != nil {
		return err
	}

	if err := h.vclockLog.Truncate(int64(n)); err != nil {
		return err
	}

	return h.vclockLog.Sync()
}

// loadVClock fetches saved vector clock entries from the log file and
// sets them in the hub's in-memory vector clock. It expects to be the
// only goroutine currently operating on the hub.
func (h *Hub) loadVClock() error {

	if h.vclockLog == nil {
		return nil
	}

	raw, err := ioutil.ReadAll(h.vclockLog)
	if err != nil {
		return err
	}

	stored := string(raw)
	if stored == "" {
		return nil
	}

	h.vclockLock.Lock()
	defer h.vclockLock.Unlock()

	for _, pair := range strings.Split(stored, ";") {

		entry := strings.Split(pair, ":")
		if len(entry) < 2 {
			return fmt.Errorf("comm: malformed vector clock entry %q in log", pair)
		}

		num, err := strconv.ParseUint(entry[1], 10, 32)
		if err != nil {
			return fmt.Errorf("comm: malformed vector clock value in %q: %w", pair, err)
		}

		h.vclock[entry[0]] = uint32(num)
	}

	return nil
}

// incVClock increments this replica's own entry in the vector clock,
// persists the result, and returns a deep copy to stamp onto the next
// outgoing Message.
func (h *Hub) incVClock() map[string]uint32 {

	h.vclockLock.Lock()
	h.vclock[h.siteID]++
	snapshot := make(map[string]uint32, len(h.vclock))
	for node, value := range h.vclock {
		snapshot[node] = value
	}
	h.vclockLock.Unlock()

	if err := h.saveVClock(); err != nil {
		level.Error(h.logger).Log(
			"msg", "saving updated vector clock to file failed",
			"err", err,
		)
	}

	return snapshot
}
