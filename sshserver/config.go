package sshserver

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// AuthorizedKeysPath restricts logins to the listed public keys. Empty
	// accepts every client.
	AuthorizedKeysPath string
}
