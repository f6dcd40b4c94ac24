// Package domain contains the core domain models for the packaging pipeline.
package domain

import (
	"iter"

	"go.trai.ch/zerr"
)

// Graph represents the directed acyclic graph of build stages.
type Graph struct {
	stages         map[InternedString]Stage
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		stages:     make(map[InternedString]Stage),
		dependents: make(map[InternedString][]InternedString),
	}
}

// AddStage adds a stage to the graph.
// It returns an error if a stage with the same name already exists.
func (g *Graph) AddStage(s *Stage) error {
	if _, exists := g.stages[s.Name]; exists {
		return zerr.With(ErrStageAlreadyExists, "stage", s.Name.String())
	}
	g.stages[s.Name] = *s
	return nil
}

// StageCount returns the number of stages in the graph.
func (g *Graph) StageCount() int {
	return len(g.stages)
}

// Stage returns the stage with the given name.
func (g *Graph) Stage(name InternedString) (Stage, error) {
	s, ok := g.stages[name]
	if !ok {
		return Stage{}, zerr.With(ErrStageNotFound, "stage", name.String())
	}
	return s, nil
}

// Validate checks for missing dependencies and cycles using a topological
// sort. On success it populates the execution order and the reverse edge
// index used by Dependents.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.stages))
	g.dependents = make(map[InternedString][]InternedString, len(g.stages))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		stage, exists := g.stages[u]
		if !exists {
			return zerr.With(ErrMissingDependency, "dependency", u.String())
		}

		for _, dep := range stage.Needs {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for name := range g.stages {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	for name, stage := range g.stages {
		for _, dep := range stage.Needs {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	cyclePath := ""
	startIdx := 0
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i].String() + " -> "
	}
	cyclePath += dep.String()
	return zerr.With(ErrCycleDetected, "cycle", cyclePath)
}

// Walk returns an iterator that yields stages in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Stage] {
	return func(yield func(Stage) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.stages[name]) {
				return
			}
		}
	}
}

// Dependents returns the stages that consume the named stage's artifact.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}
