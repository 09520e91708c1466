package qdynamics

import (
	"strconv"

	"github.com/pkg/errors"
)

// Node answers whether this process is the one that reports results.
// In a multi-process run every process computes the same propagation, and only the root writes output.
type Node interface {
	IsRoot() bool
}

// LocalNode is a single process run, which is always the root.
type LocalNode struct{}

func (LocalNode) IsRoot() bool { return true }

// RankNode is a process of a multi-process run, the root has rank 0.
type RankNode struct {
	Rank int
}

func (n RankNode) IsRoot() bool { return n.Rank == 0 }

// rankEnvs are the rank variables set by common process launchers.
var rankEnvs = []string{"OMPI_COMM_WORLD_RANK", "PMI_RANK", "SLURM_PROCID"}

// NodeFromEnv returns the RankNode described by the launcher environment, or LocalNode if there is none.
func NodeFromEnv(getenv func(string) string) (Node, error) {
	for _, key := range rankEnvs {
		v := getenv(key)
		if v == "" {
			continue
		}
		rank, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, key)
		}
		return RankNode{Rank: rank}, nil
	}
	return LocalNode{}, nil
}
