package common

// DefaultPort is the TCP port the registration service listens on and the
// client dials when nothing else is configured.
const DefaultPort = "5000"
