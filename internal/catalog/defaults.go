package catalog

import "github.com/jonathan/procurement-watch/internal/types"

func defaultSources() []types.Source {
	eu, uk, nordics, baltics, us := types.RegionEU, types.RegionUK, types.RegionNordics, types.RegionBaltics, types.RegionUS
	crypto, insider := types.CategoryCrypto, types.CategoryInsiderThreat

	return []types.Source{
		{ID: "ted_crypto", Label: "TED - Crypto/Blockchain", Region: eu, Category: crypto},
		{ID: "ted_forensics", Label: "TED - Crypto Forensics/AML", Region: eu, Category: crypto},
		{ID: "ted_seizure", Label: "TED - Seizure/Forfeiture", Region: eu, Category: crypto},
		{ID: "ted_insider", Label: "TED - Insider Threat/SIEM", Region: eu, Category: insider},
		{ID: "uk_crypto", Label: "UK - Crypto/Digital Assets", Region: uk, Category: crypto},
		{ID: "uk_insider", Label: "UK - Insider Threat", Region: uk, Category: insider},
		{ID: "no_crypto", Label: "Norway - Doffin/Mercell", Region: nordics, Category: crypto},
		{ID: "fi_crypto", Label: "Finland - Hilma/Hansel", Region: nordics, Category: crypto},
		{ID: "dk_crypto", Label: "Denmark - Udbud/Ethics", Region: nordics, Category: crypto},
		{ID: "se_crypto", Label: "Sweden - Polisen/Avropa", Region: nordics, Category: crypto},
		{ID: "is_crypto", Label: "Iceland - Rikiskaup/TendSign", Region: nordics, Category: crypto},
		{ID: "lv_crypto", Label: "Latvia - IUB/EIS", Region: baltics, Category: crypto},
		{ID: "lt_crypto", Label: "Lithuania - CVP IS", Region: baltics, Category: crypto},
		{ID: "ee_crypto", Label: "Estonia - Riigihangete", Region: baltics, Category: crypto},
		{ID: "sam_crypto", Label: "USA - SAM.gov Crypto", Region: us, Category: crypto},
		{ID: "sam_seizure", Label: "USA - SAM.gov Seizure", Region: us, Category: crypto},
		{ID: "sam_insider", Label: "USA - SAM.gov Insider/SIEM", Region: us, Category: insider},
	}
}

func defaultBatches() []types.Batch {
	return []types.Batch{
		{
			ID:        "eu",
			Label:     "EU (TED)",
			SourceIDs: []string{"ted_crypto", "ted_forensics", "ted_seizure", "ted_insider"},
			PromptKey: "batch-eu",
		},
		{
			ID:        "uk",
			Label:     "UK",
			SourceIDs: []string{"uk_crypto", "uk_insider"},
			PromptKey: "batch-uk",
		},
		{
			ID:        "nordics",
			Label:     "Nordics",
			SourceIDs: []string{"no_crypto", "fi_crypto", "dk_crypto", "se_crypto", "is_crypto"},
			PromptKey: "batch-nordics",
		},
		{
			ID:        "baltics_us",
			Label:     "Baltics + USA",
			SourceIDs: []string{"lv_crypto", "lt_crypto", "ee_crypto", "sam_crypto", "sam_seizure", "sam_insider"},
			PromptKey: "batch-baltics_us",
		},
	}
}
