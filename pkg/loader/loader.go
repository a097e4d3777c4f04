package loader

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/logger"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
)

const (
	// longest accepted dataset line
	maxLineBytes = 16 * 1024 * 1024

	// context is checked every this many request lines
	cancelCheckInterval = 4096

	// header counts are only trusted up to this many preallocated elements;
	// longer lists grow as their lines are read
	preallocLimit = 1 << 16

	// caches have no lines of their own, so their count is bounded
	maxCaches = 1 << 20
)

// Options controlling which requests are materialized
type Options struct {
	MaxRequests int                     // request cap K, 0 for no cap
	Truncation  config.TruncationPolicy // which requests to keep when R > K
	SampleSeed  uint64                  // seed of the uniform sampler
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRequests: cfg.MaxRequests,
		Truncation:  cfg.Truncation,
		SampleSeed:  cfg.SampleSeed,
	}
}

// Load reads a dataset file into a problem instance
func Load(ctx context.Context, path string, opts Options) (*core.ProblemInstance, error) {
	return LoadFS(ctx, afero.NewOsFs(), path, opts)
}

// LoadFS reads a dataset file from the given file system
func LoadFS(ctx context.Context, fs afero.Fs, path string, opts Options) (*core.ProblemInstance, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	inst, err := ReadContext(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	logger.Log.Infow("dataset loaded", "path", path, "videos", inst.NumVideos(), "endpoints", inst.NumEndpoints(),
		"caches", inst.NumCaches(), "capacity", inst.CacheCapacity(),
		"requests", inst.NumRequests(), "declaredRequests", inst.DeclaredRequests(),
		"truncation", opts.Truncation.String())
	return inst, nil
}

// Read parses a dataset from r
func Read(r io.Reader, opts Options) (*core.ProblemInstance, error) {
	return ReadContext(context.Background(), r, opts)
}

// ReadContext parses a dataset from r, stopping early if ctx is cancelled.
// Every line is validated, including request lines beyond the cap.
func ReadContext(ctx context.Context, r io.Reader, opts Options) (*core.ProblemInstance, error) {
	if opts.MaxRequests < 0 {
		return nil, fmt.Errorf("negative request cap %d", opts.MaxRequests)
	}
	lr := newLineReader(r)

	header, err := lr.ints(5, "header V E R C X")
	if err != nil {
		return nil, err
	}
	numVideos, numEndpoints, numRequests, numCaches, capacity := header[0], header[1], header[2], header[3], header[4]
	for i, name := range []string{"video", "endpoint", "request", "cache"} {
		if header[i] < 0 {
			return nil, malformed(lr.line, "negative %s count %d", name, header[i])
		}
	}
	if capacity <= 0 {
		return nil, malformed(lr.line, "non-positive cache capacity %d", capacity)
	}
	if numCaches > maxCaches {
		return nil, malformed(lr.line, "cache count %d exceeds %d", numCaches, maxCaches)
	}

	var videos []*core.Video
	if numVideos > 0 {
		sizes, err := lr.ints(numVideos, "video sizes")
		if err != nil {
			return nil, err
		}
		videos = make([]*core.Video, len(sizes))
		for id, size := range sizes {
			if size <= 0 {
				return nil, malformed(lr.line, "video %d has non-positive size %d", id, size)
			}
			videos[id] = core.NewVideo(id, size)
		}
	}

	endpoints := make([]*core.Endpoint, 0, min(numEndpoints, preallocLimit))
	for id := 0; id < numEndpoints; id++ {
		e, err := lr.endpoint(id, numCaches)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}

	caches := make([]*core.Cache, numCaches)
	for id := range caches {
		caches[id] = core.NewCache(id, capacity)
	}

	keeper := newKeeper(numRequests, opts)
	for id := 0; id < numRequests; id++ {
		if id%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		what := fmt.Sprintf("request %d: videoID endpointID count", id)
		rec, err := lr.ints(3, what)
		if err != nil {
			return nil, err
		}
		videoID, endpointID, count := rec[0], rec[1], rec[2]
		if videoID < 0 || videoID >= numVideos {
			return nil, malformed(lr.line, "request %d references unknown video %d", id, videoID)
		}
		if endpointID < 0 || endpointID >= numEndpoints {
			return nil, malformed(lr.line, "request %d references unknown endpoint %d", id, endpointID)
		}
		if count <= 0 {
			return nil, malformed(lr.line, "request %d has non-positive count %d", id, count)
		}
		keeper.offer(core.NewRequest(id, videoID, endpointID, count))
	}

	inst, err := core.NewProblemInstance(videos, endpoints, caches, keeper.kept(), capacity, numRequests)
	if err != nil {
		return nil, &MalformedInputError{Reason: "inconsistent dataset", Err: err}
	}
	logger.Log.Debugw("dataset parsed", "lines", lr.line, "kept", inst.NumRequests(), "declared", numRequests)
	return inst, nil
}

// line oriented tokenizer; blank lines are skipped
type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineReader{sc: sc}
}

// next non-blank line split into tokens
func (lr *lineReader) fields(what string) ([]string, error) {
	for lr.sc.Scan() {
		lr.line++
		if f := strings.Fields(lr.sc.Text()); len(f) > 0 {
			return f, nil
		}
	}
	if err := lr.sc.Err(); err != nil {
		return nil, &MalformedInputError{Line: lr.line + 1, Reason: "unreadable " + what, Err: err}
	}
	return nil, &MalformedInputError{Line: lr.line + 1, Reason: "unexpected end of input, expected " + what, Err: io.ErrUnexpectedEOF}
}

// next line as exactly n integers
func (lr *lineReader) ints(n int, what string) ([]int, error) {
	f, err := lr.fields(what)
	if err != nil {
		return nil, err
	}
	if len(f) != n {
		return nil, malformed(lr.line, "%s: expected %d tokens, found %d", what, n, len(f))
	}
	values := make([]int, n)
	for i, tok := range f {
		if values[i], err = strconv.Atoi(tok); err != nil {
			return nil, &MalformedInputError{Line: lr.line, Reason: fmt.Sprintf("%s: token %d is not an integer", what, i+1), Err: err}
		}
	}
	return values, nil
}

func (lr *lineReader) endpoint(id int, numCaches int) (*core.Endpoint, error) {
	what := fmt.Sprintf("endpoint %d: dcLatency numConnections", id)
	head, err := lr.ints(2, what)
	if err != nil {
		return nil, err
	}
	dcLatency, numConnections := head[0], head[1]
	if dcLatency < 0 {
		return nil, malformed(lr.line, "endpoint %d has negative data center latency %d", id, dcLatency)
	}
	if numConnections < 0 {
		return nil, malformed(lr.line, "endpoint %d has negative connection count %d", id, numConnections)
	}
	if numConnections > numCaches {
		return nil, malformed(lr.line, "endpoint %d declares %d connections but there are %d caches", id, numConnections, numCaches)
	}
	connections := make(map[int]int, min(numConnections, preallocLimit))
	for k := 0; k < numConnections; k++ {
		conn, err := lr.ints(2, fmt.Sprintf("endpoint %d connection %d: cacheID latency", id, k))
		if err != nil {
			return nil, err
		}
		cacheID, latency := conn[0], conn[1]
		if cacheID < 0 || cacheID >= numCaches {
			return nil, malformed(lr.line, "endpoint %d connects to unknown cache %d", id, cacheID)
		}
		if latency < 0 {
			return nil, malformed(lr.line, "endpoint %d has negative latency %d to cache %d", id, latency, cacheID)
		}
		if _, dup := connections[cacheID]; dup {
			return nil, malformed(lr.line, "endpoint %d lists cache %d twice", id, cacheID)
		}
		connections[cacheID] = latency
	}
	return core.NewEndpoint(id, dcLatency, connections), nil
}

// keeper materializes the requests allowed by the cap and truncation policy
type keeper struct {
	limit    int
	policy   config.TruncationPolicy
	rng      *rand.Rand
	seen     int
	requests []*core.Request
}

func newKeeper(declared int, opts Options) *keeper {
	limit := declared
	if opts.MaxRequests > 0 && opts.MaxRequests < declared {
		limit = opts.MaxRequests
	}
	k := &keeper{
		limit:    limit,
		policy:   opts.Truncation,
		requests: make([]*core.Request, 0, min(limit, preallocLimit)),
	}
	if opts.Truncation == config.UniformSample {
		k.rng = rand.New(rand.NewPCG(opts.SampleSeed, opts.SampleSeed^0x9e3779b97f4a7c15))
	}
	return k
}

func (k *keeper) offer(r *core.Request) {
	defer func() { k.seen++ }()
	if len(k.requests) < k.limit {
		k.requests = append(k.requests, r)
		return
	}
	if k.policy != config.UniformSample || k.limit == 0 {
		return
	}
	// reservoir sampling: the i-th record replaces a kept one with probability limit/(i+1)
	if j := k.rng.IntN(k.seen + 1); j < k.limit {
		k.requests[j] = r
	}
}

// kept requests in ascending id order
func (k *keeper) kept() []*core.Request {
	out := slices.Clone(k.requests)
	slices.SortFunc(out, func(a, b *core.Request) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}
