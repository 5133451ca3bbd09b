package domain

var Tables = []interface{}{
	// Catalog
	&Product{},
	// Sales
	&Sale{},
	// Sync
	&SyncQueueEntry{},
	// Auth
	&LocalUser{},
}
