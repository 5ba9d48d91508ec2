package config

import "regexp"

// BigQuery dataset ids are letters, digits and underscores.
var datasetPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,1024}$`)
