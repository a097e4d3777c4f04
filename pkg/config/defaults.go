package config

import "time"

/**
 * Parameters
 */

// maximum number of requests materialized from a dataset (0 means no cap)
var DefaultMaxRequests = 5000

// wall-clock budget of one solve
var DefaultTimeLimit = time.Hour

// relative optimality gap accepted when the time budget runs out
var DefaultMIPGap = 5e-3

// a binary variable counts as selected above this value
const SelectionThreshold = 0.5

// solver backend used when none is configured
const DefaultBackend = "branchbound"

// path of the placement plan written by the CLI
const DefaultOutputPath = "videos.out"

// seed of the uniform request sampler
const DefaultSampleSeed uint64 = 1

/**
 * Environment variables
 */

// prefix of environment variables overriding configuration keys (e.g. VCO_DATASET)
const EnvPrefix = "VCO"
