// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preset

import (
	"context"
	"encoding/json"

	"github.com/pdiddy/menu-hunter/internal/crm"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

// CompanyWriter stores extraction results on CRM company records.
// *crm.Client satisfies it.
type CompanyWriter interface {
	FindCompanyByDomain(ctx context.Context, rawURL string) (*crm.Company, error)
	WriteExtraction(ctx context.Context, companyID string, data json.RawMessage, kind string) error
}

var _ CompanyWriter = (*crm.Client)(nil)

// ExtractAndWrite extracts from url and writes the data to the CRM company
// identified by companyID, or to the company whose domain matches url when
// companyID is empty. A nil writer means no CRM credentials are configured.
// CRM problems never fail the extraction; they are reported in CRMError.
func (e *Extractor) ExtractAndWrite(ctx context.Context, url string, opts types.ExtractOptions, w CompanyWriter, companyID string) *types.ExtractionResult {
	res := e.ExtractFromURL(ctx, url, opts)
	if !res.Success {
		return res
	}
	if w == nil {
		res.CRMError = "No HubSpot token provided"
		return res
	}

	if companyID == "" {
		company, err := w.FindCompanyByDomain(ctx, url)
		if err != nil {
			res.CRMError = err.Error()
			return res
		}
		if company != nil {
			companyID = company.ID
		}
	}
	if companyID == "" {
		res.CRMError = "No matching company found in HubSpot"
		return res
	}

	if err := w.WriteExtraction(ctx, companyID, res.Data, res.Preset); err != nil {
		res.CRMError = err.Error()
		e.logger().Warn("preset.crm.error", "url", url, "company_id", companyID, "error", err)
		return res
	}
	res.CRMWritten = true
	res.CRMCompanyID = companyID
	return res
}
