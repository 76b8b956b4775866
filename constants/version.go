package constants

// Version of the gpg-mime library.
const Version = "1.0.0"
