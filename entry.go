package refetch

import "time"

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}
