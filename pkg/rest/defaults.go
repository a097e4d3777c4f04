package rest

import "time"

/**
 * Environment variables
 */

// REST server env names
const RestHostEnvName = "VCO_HOST"
const RestPortEnvName = "VCO_PORT"

/**
 * Parameters
 */

// address the server listens on when the env names are not set
const DefaultRestHost = "localhost"
const DefaultRestPort = "8080"

// largest accepted dataset body
const MaxDatasetBytes = 256 << 20

// time allowed to finish in-flight requests on shutdown
const ShutdownTimeout = 10 * time.Second
