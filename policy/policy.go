// ABOUTME: Access policy engine deciding who may see or change deals and their children
// ABOUTME: Pure functions over identities and models; handlers call these before persisting
package policy

import (
	"github.com/harperreed/crmlite/models"
)

// clientStages are the pipeline stages a client portal can see.
var clientStages = []string{models.StageQuoted, models.StageWon}

// Capabilities describes what an identity may do, independent of any one deal.
type Capabilities struct {
	CanWrite              bool
	CanReadInternalFiles  bool
	CanReadPipelineDetail bool
	// VisibleStages is nil when every stage is visible.
	VisibleStages []string
}

// For returns the capability descriptor for id.
func For(id *Identity) Capabilities {
	switch {
	case id.IsSalesRep():
		return Capabilities{
			CanWrite:              true,
			CanReadInternalFiles:  true,
			CanReadPipelineDetail: true,
		}
	case id.IsClient():
		return Capabilities{
			VisibleStages: append([]string(nil), clientStages...),
		}
	default:
		return Capabilities{VisibleStages: []string{}}
	}
}

// StageVisible reports whether deals in stage can be seen at all.
func (c Capabilities) StageVisible(stage string) bool {
	return c.VisibleStages == nil || models.Contains(c.VisibleStages, stage)
}

func forbidden() error { return Deny(ErrForbidden, "Forbidden") }

// CanReadDeal enforces ownership for reps and company + stage visibility for clients.
func CanReadDeal(id *Identity, deal *models.Deal) error {
	switch {
	case id.IsSalesRep():
		if deal.SalesRepID != id.UserID {
			return forbidden()
		}
		return nil
	case id.IsClient():
		if deal.ClientCompanyName != id.CompanyName {
			return forbidden()
		}
		if !For(id).StageVisible(deal.Stage) {
			return forbidden()
		}
		return nil
	default:
		return forbidden()
	}
}

// RequireWriter rejects identities that can never create, change or delete anything.
func RequireWriter(id *Identity) error {
	if !For(id).CanWrite {
		return Deny(ErrForbidden, "Only sales reps can modify deals")
	}
	return nil
}

// CanWriteDeal covers every write on a deal and on its activities, contacts,
// competitors and files.
func CanWriteDeal(id *Identity, deal *models.Deal) error {
	if err := RequireWriter(id); err != nil {
		return err
	}
	if deal.SalesRepID != id.UserID {
		return forbidden()
	}
	return nil
}

// CanReadDealDetail gates activities, contacts and competitors, which only the
// owning rep sees.
func CanReadDealDetail(id *Identity, deal *models.Deal) error {
	if err := CanReadDeal(id, deal); err != nil {
		return err
	}
	if !For(id).CanReadPipelineDetail {
		return forbidden()
	}
	return nil
}

// CanReadFile requires read access to the parent deal, and EXTERNAL category
// unless the caller may read internal files.
func CanReadFile(id *Identity, deal *models.Deal, file *models.File) error {
	if err := CanReadDeal(id, deal); err != nil {
		return err
	}
	if !FileVisible(id, file) {
		return forbidden()
	}
	return nil
}

// FileVisible applies the category rule alone.
func FileVisible(id *Identity, file *models.File) bool {
	return For(id).CanReadInternalFiles || file.Category == models.FileExternal
}

// FileCategories is the category set a file listing may return; nil means all.
func FileCategories(id *Identity) []string {
	if For(id).CanReadInternalFiles {
		return nil
	}
	return []string{models.FileExternal}
}

// DealScope builds the list filter for id. An empty stage means no extra
// narrowing. The filter selects exactly the deals CanReadDeal allows.
func DealScope(id *Identity, stage string) models.DealFilter {
	var filter models.DealFilter

	switch {
	case id.IsSalesRep():
		userID := id.UserID
		filter.SalesRepID = &userID
	case id.IsClient():
		company := id.CompanyName
		filter.ClientCompanyName = &company
	}

	visible := For(id).VisibleStages
	if stage == "" {
		filter.Stages = visible
		return filter
	}

	if visible == nil || models.Contains(visible, stage) {
		filter.Stages = []string{stage}
	} else {
		filter.Stages = []string{}
	}
	return filter
}

// CanViewDashboard gates the pipeline dashboard and graph, which summarize a
// rep's own book of business.
func CanViewDashboard(id *Identity) error {
	if !For(id).CanReadPipelineDetail {
		return Deny(ErrForbidden, "Only sales reps have a dashboard")
	}
	return nil
}
