package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-querybot/server/internal/agent/graph/nodes"
	"github.com/Chative-querybot/server/internal/agent/graph/observers"
	"github.com/Chative-querybot/server/internal/agent/inspect"
	"github.com/Chative-querybot/server/internal/agent/intent"
	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	"github.com/Chative-querybot/server/internal/agent/query"
	"github.com/Chative-querybot/server/internal/agent/respond"
	"github.com/Chative-querybot/server/internal/agent/slots"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

// Runner executes one turn against the compiled graph. The state is mutated in place
// and returned.
type Runner interface {
	Run(ctx context.Context, state *model.TurnState) (*model.TurnState, error)
}

// Catalog is the storage surface the turn graph needs: schema lookup plus execution.
type Catalog interface {
	inspect.Catalog
	respond.Storage
}

// Config holds everything needed to compose the turn graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the components.
type Config struct {
	Oracle          oracle.Oracle
	Formatter       oracle.Oracle
	Storage         Catalog
	Dialect         string
	HistoryMaxTurns int
	FormatterConfig model.FormatterModelConfig
}

// GraphConfig holds the components wired into the graph nodes.
type GraphConfig struct {
	Schema      nodes.Schema
	Classifier  nodes.Classifier
	Resolver    nodes.Resolver
	Synthesizer nodes.Synthesizer
	Executor    nodes.Executor
	Formatter   nodes.Formatter
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.TurnState, *model.TurnState]
}

type graphRunner struct {
	runnable compose.Runnable[*model.TurnState, *model.TurnState]
}

func (r *graphRunner) Run(ctx context.Context, state *model.TurnState) (*model.TurnState, error) {
	out, err := r.runnable.Invoke(ctx, state, compose.WithCallbacks(observers.NewAllCallbacks()...))
	if err != nil {
		return state, err
	}
	if out == nil {
		return state, errors.New("graph returned no state")
	}
	return out, nil
}

// BuildTurnGraph composes the classifier, resolver, synthesizer, executor and
// formatter over the given oracles and storage, then builds the graph.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle is nil")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	formatter := cfg.Formatter
	if formatter == nil {
		formatter = cfg.Oracle
	}

	schema := inspect.New(cfg.Storage)
	runnable, err := BuildGraph(ctx, &GraphConfig{
		Schema:      schema,
		Classifier:  intent.NewClassifier(cfg.Oracle),
		Resolver:    slots.NewResolver(cfg.Oracle, schema, cfg.HistoryMaxTurns),
		Synthesizer: query.NewSynthesizer(cfg.Oracle, cfg.Dialect),
		Executor:    respond.NewExecutor(cfg.Storage),
		Formatter:   respond.NewFormatter(formatter, schema, cfg.FormatterConfig),
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Str("dialect", cfg.Dialect).Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled turn graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.TurnState, *model.TurnState], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Schema == nil || config.Classifier == nil || config.Resolver == nil ||
		config.Synthesizer == nil || config.Executor == nil || config.Formatter == nil {
		return nil, fmt.Errorf("graph components are not properly initialized")
	}

	builder := &GraphBuilder{
		config: config,
		graph:  compose.NewGraph[*model.TurnState, *model.TurnState](),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	lambdas := []struct {
		name   string
		lambda *compose.Lambda
	}{
		{nodes.NodeClassify, nodes.NewClassifyNode(b.config.Schema, b.config.Classifier)},
		{nodes.NodeSchemaListing, nodes.NewSchemaListingNode()},
		{nodes.NodeGeneric, nodes.NewGenericNode(b.config.Classifier)},
		{nodes.NodeUnclassifiable, nodes.NewUnclassifiableNode()},
		{nodes.NodeResolve, nodes.NewResolveNode(b.config.Resolver)},
		{nodes.NodeSynthesize, nodes.NewSynthesizeNode(b.config.Synthesizer)},
		{nodes.NodeExecute, nodes.NewExecuteNode(b.config.Executor)},
		{nodes.NodeFormat, nodes.NewFormatNode(b.config.Formatter)},
	}

	for _, l := range lambdas {
		if err := b.graph.AddLambdaNode(l.name, l.lambda, compose.WithNodeName(l.name)); err != nil {
			logx.Error().Err(err).Str("node", l.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", l.name, err)
		}
	}
	return nil
}

// addEdges creates the unconditional connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeClassify},
		{nodes.NodeSchemaListing, compose.END},
		{nodes.NodeGeneric, compose.END},
		{nodes.NodeUnclassifiable, compose.END},
		{nodes.NodeFormat, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s->%s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	intentBranch := compose.NewGraphBranch(
		nodes.NewIntentCondition(),
		map[string]bool{
			nodes.NodeSchemaListing:  true,
			nodes.NodeGeneric:        true,
			nodes.NodeUnclassifiable: true,
			nodes.NodeResolve:        true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeClassify, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}

	// Each stage of the query pipeline either finishes the turn or hands over.
	pipeline := [][2]string{
		{nodes.NodeResolve, nodes.NodeSynthesize},
		{nodes.NodeSynthesize, nodes.NodeExecute},
		{nodes.NodeExecute, nodes.NodeFormat},
	}
	for _, stage := range pipeline {
		branch := compose.NewGraphBranch(
			nodes.NewContinueCondition(stage[1]),
			map[string]bool{
				stage[1]:    true,
				compose.END: true,
			},
		)
		if err := b.graph.AddBranch(stage[0], branch); err != nil {
			logx.Error().Err(err).Str("node", stage[0]).Msg("Error adding pipeline branch")
			return fmt.Errorf("error adding %s branch: %w", stage[0], err)
		}
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.TurnState, *model.TurnState], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(20), compose.WithGraphName("querybot_turn"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
