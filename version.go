package walletkit

// Version is the walletkit release version.
const Version = "0.3.0"
