package refetch

func safeGo(log Logger, fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				// This should never panic but we want to log it if it does.
				log.Warnf("refetch: recovered from panic: %v", err)
			}
		}()
		fn()
	}()
}
