package fixtures

import (
	"fmt"

	"github.com/tklauser/go-sysconf"
)

func mustSysconf(name int) int64 {
	x, err := sysconf.Sysconf(name)
	if err != nil {
		panic(err)
	}
	return x
}

func memoryMB() int64 {
	return int64(mustSysconf(sysconf.SC_PHYS_PAGES)*mustSysconf(sysconf.SC_PAGE_SIZE)) / 1e6
}

// wiredTigerCacheGB gives mongod an eighth of host memory, never less than the 0.25GB mongod accepts.
func wiredTigerCacheGB(mb int64) string {
	gb := float64(mb) / 8 / 1024
	if gb < 0.25 {
		gb = 0.25
	}
	return fmt.Sprintf("%.2f", gb)
}
