// ABOUTME: Graphviz renderings of the sales pipeline and a single deal's stakeholders
// ABOUTME: Output is DOT source so callers can pipe it into dot or any viewer
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/crmlite/models"
)

var stageColors = map[string]string{
	models.StageCourting:   "lightgrey",
	models.StageRegistered: "lightblue",
	models.StageQuoted:     "lightyellow",
	models.StageWon:        "palegreen",
	models.StageClosedLost: "mistyrose",
}

var contactRoleColors = map[string]string{
	models.ContactChampion:       "palegreen",
	models.ContactEconomicBuyer:  "gold",
	models.ContactTechnicalBuyer: "lightblue",
	models.ContactInfluencer:     "lightgrey",
	models.ContactBlocker:        "salmon",
}

func shortID(id fmt.Stringer) string {
	return id.String()[:8]
}

// render runs build against a fresh graph and returns its DOT source.
func render(ctx context.Context, build func(*cgraph.Graph) error) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	if err := build(graph); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

// GeneratePipelineGraph lays the stages out left to right and hangs each deal
// off its stage, labelled with value and weighted value.
func GeneratePipelineGraph(ctx context.Context, deals []*models.Deal) (string, error) {
	return render(ctx, func(graph *cgraph.Graph) error {
		graph.SetLabel("Sales Pipeline")
		graph.SetRankDir(cgraph.LRRank)

		stageNodes := make(map[string]*cgraph.Node, len(models.Stages))
		var prev *cgraph.Node
		for _, stage := range models.Stages {
			node, err := graph.CreateNodeByName("stage_" + stage)
			if err != nil {
				return fmt.Errorf("failed to create stage node: %w", err)
			}
			node.SetLabel(stage)
			node.SetShape("box")
			node.SetStyle("filled")
			node.SetFillColor(stageColors[stage])
			stageNodes[stage] = node

			if prev != nil {
				edge, err := graph.CreateEdgeByName("next_"+stage, prev, node)
				if err != nil {
					return fmt.Errorf("failed to create stage edge: %w", err)
				}
				edge.SetStyle("bold")
			}
			prev = node
		}

		for _, deal := range deals {
			node, err := graph.CreateNodeByName("deal_" + shortID(deal.ID))
			if err != nil {
				return fmt.Errorf("failed to create deal node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%s\n%s @ %d%% = %s",
				deal.DealName, deal.ClientCompanyName,
				formatK(deal.DealValue), deal.Probability,
				formatK(models.WeightedValue(deal.DealValue, deal.Probability))))
			node.SetShape("ellipse")

			stageNode, ok := stageNodes[deal.Stage]
			if !ok {
				continue
			}
			edge, err := graph.CreateEdgeByName("in_"+shortID(deal.ID), stageNode, node)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
		}
		return nil
	})
}

// GenerateDealGraph draws one deal with its contacts, colored by buying role,
// and its competitors. The primary contact gets a double outline.
func GenerateDealGraph(ctx context.Context, deal *models.Deal, contacts []*models.Contact, competitors []*models.Competitor) (string, error) {
	return render(ctx, func(graph *cgraph.Graph) error {
		graph.SetLabel(deal.DealName)

		dealNode, err := graph.CreateNodeByName("deal_" + shortID(deal.ID))
		if err != nil {
			return fmt.Errorf("failed to create deal node: %w", err)
		}
		dealNode.SetLabel(fmt.Sprintf("%s\n%s\n%s", deal.DealName, deal.Stage, formatK(deal.DealValue)))
		dealNode.SetShape("diamond")
		dealNode.SetStyle("filled")
		dealNode.SetFillColor(stageColors[deal.Stage])

		for _, c := range contacts {
			node, err := graph.CreateNodeByName("contact_" + shortID(c.ID))
			if err != nil {
				return fmt.Errorf("failed to create contact node: %w", err)
			}
			label := fmt.Sprintf("%s\n%s", c.Name, c.Role)
			if c.Title != "" {
				label = fmt.Sprintf("%s\n%s\n%s", c.Name, c.Title, c.Role)
			}
			node.SetLabel(label)
			node.SetShape("ellipse")
			node.SetStyle("filled")
			node.SetFillColor(contactRoleColors[c.Role])
			if c.IsPrimary {
				node.SetPeripheries(2)
			}

			edge, err := graph.CreateEdgeByName("stakeholder_"+shortID(c.ID), node, dealNode)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			if c.IsPrimary {
				edge.SetLabel("primary")
			}
		}

		for _, comp := range competitors {
			node, err := graph.CreateNodeByName("competitor_" + shortID(comp.ID))
			if err != nil {
				return fmt.Errorf("failed to create competitor node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n(%s)", comp.Name, comp.Status))
			node.SetShape("octagon")
			if comp.Status == models.CompetitorEliminated {
				node.SetStyle("dashed")
			}

			edge, err := graph.CreateEdgeByName("competes_"+shortID(comp.ID), node, dealNode)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dotted")
			edge.SetLabel("competes")
		}
		return nil
	})
}
