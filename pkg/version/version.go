package version

// Current defines the application version.
// It defaults to "dev" and is set with -ldflags "-X" at release.
var Current = "dev"

const AppName = "provtag"
