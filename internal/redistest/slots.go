// Package redistest holds go-redis helpers shared by tests that run against
// miniredis, which accepts commands a Redis Cluster would reject.
package redistest

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// SlotCount is the number of hash slots in a Redis Cluster.
const SlotCount = 16384

// KeySlot returns the cluster hash slot of key, honoring {hashtag} sections.
func KeySlot(key string) uint16 {
	if start := strings.IndexByte(key, '{'); start >= 0 {
		if end := strings.IndexByte(key[start+1:], '}'); end > 0 {
			key = key[start+1 : start+1+end]
		}
	}
	return crc16(key) % SlotCount
}

// crc16 is CRC-16/XMODEM, the checksum Redis Cluster hashes keys with.
func crc16(s string) uint16 {
	var crc uint16
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for b := 0; b < 8; b++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// SlotRecorder is a redis.Hook that records every command or MULTI/EXEC block
// a cluster would refuse with CROSSSLOT.
type SlotRecorder struct {
	mu         sync.Mutex
	commands   int
	violations []string
}

// Attach installs a new recorder on client.
func Attach(client *redis.Client) *SlotRecorder {
	r := &SlotRecorder{}
	client.AddHook(r)
	return r
}

// Commands reports how many commands passed through the hook.
func (r *SlotRecorder) Commands() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commands
}

// Violations lists the offending commands, one description each.
func (r *SlotRecorder) Violations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.violations...)
}

func (r *SlotRecorder) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (r *SlotRecorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		r.check([]redis.Cmder{cmd})
		return next(ctx, cmd)
	}
}

func (r *SlotRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		r.check(cmds)
		return next(ctx, cmds)
	}
}

func (r *SlotRecorder) check(cmds []redis.Cmder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := len(cmds) > 0 && cmds[0].Name() == "multi"
	var txKeys []string
	for _, cmd := range cmds {
		name := cmd.Name()
		if name == "multi" || name == "exec" {
			continue
		}
		r.commands++
		keys := commandKeys(cmd)
		if !sameSlot(keys) {
			r.violations = append(r.violations, fmt.Sprintf("%s %v", name, keys))
		}
		txKeys = append(txKeys, keys...)
	}
	if tx && !sameSlot(txKeys) {
		r.violations = append(r.violations, fmt.Sprintf("multi/exec %v", txKeys))
	}
}

// commandKeys knows the key positions of the commands fangauth issues.
func commandKeys(cmd redis.Cmder) []string {
	args := cmd.Args()
	switch cmd.Name() {
	case "ping", "hello", "client", "select", "auth", "script":
		return nil
	case "eval", "evalsha", "eval_ro", "evalsha_ro":
		if len(args) < 3 {
			return nil
		}
		n, err := strconv.Atoi(fmt.Sprint(args[2]))
		if err != nil || n <= 0 || 3+n > len(args) {
			return nil
		}
		keys := make([]string, 0, n)
		for _, k := range args[3 : 3+n] {
			keys = append(keys, fmt.Sprint(k))
		}
		return keys
	case "del", "unlink", "exists", "mget":
		keys := make([]string, 0, len(args)-1)
		for _, k := range args[1:] {
			keys = append(keys, fmt.Sprint(k))
		}
		return keys
	default:
		if len(args) < 2 {
			return nil
		}
		return []string{fmt.Sprint(args[1])}
	}
}

func sameSlot(keys []string) bool {
	for i := 1; i < len(keys); i++ {
		if KeySlot(keys[i]) != KeySlot(keys[0]) {
			return false
		}
	}
	return true
}
