package config

const (
	// DefaultDatabasePath is the default path for the library database
	DefaultDatabasePath = "./lingua.db"

	// DefaultLibraryDir holds media, recordings and speech files
	DefaultLibraryDir = "./library"

	// DefaultStorageLocalRoot receives uploads when the local storage driver is used
	DefaultStorageLocalRoot = "./storage"

	DefaultDictionaryBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"
)
