package tripflow

// Version is the release of the tripflow module, overridden at build time with -ldflags.
var Version = "0.1.0"
