package mainboilerplate

// Version and BuildDate are populated at link time, eg:
//
//	go build -ldflags "-X go.gazette.dev/sqlbulk/mainboilerplate.Version=v1.2.0"
var (
	Version   = "development"
	BuildDate = "unknown"
)
