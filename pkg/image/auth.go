package image

// RegistryAuth carries the credentials for one image repository. They are
// fixed for the lifetime of a run: the target and cache repositories each get
// their own value at startup and keep it until the run ends.
type RegistryAuth struct {
	Username string
	Password string
}

// Anonymous reports whether the credentials are empty, meaning the registry
// is accessed unauthenticated.
func (a RegistryAuth) Anonymous() bool {
	return a.Username == "" && a.Password == ""
}

// String masks the password so credentials never end up in logs or error
// messages through formatting.
func (a RegistryAuth) String() string {
	if a.Anonymous() {
		return "anonymous"
	}
	return a.Username + ":***"
}
