package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/spf13/cobra"
)

// attrFlags are the whitelisted update fields. Only flags given on the
// command line are applied.
type attrFlags struct {
	name       string
	permission string
	externalID string
	extensors  string
	enabled    bool
}

func (f *attrFlags) bind(cmd *cobra.Command, withName bool) {
	if withName {
		cmd.Flags().StringVar(&f.name, "name", "", "display name")
	}
	cmd.Flags().StringVar(&f.permission, "permission", "", "permission role name")
	cmd.Flags().StringVar(&f.externalID, "external-id", "", "identifier in an external system")
	cmd.Flags().StringVar(&f.extensors, "extensors", "", "JSON object of extension fields")
	cmd.Flags().BoolVar(&f.enabled, "enabled", true, "whether the record is enabled")
}

func (f *attrFlags) common(cmd *cobra.Command) (domain.CommonAttrs, error) {
	var in domain.CommonAttrs
	flags := cmd.Flags()
	if flags.Changed("permission") {
		in.Permission = &f.permission
	}
	if flags.Changed("external-id") {
		in.ExternalID = &f.externalID
	}
	if flags.Changed("enabled") {
		in.Enabled = &f.enabled
	}
	if flags.Changed("extensors") {
		if err := json.Unmarshal([]byte(f.extensors), &in.Extensors); err != nil {
			return in, domain.ValidationError("Invalid extensors: %v", err)
		}
	}
	return in, nil
}

func (f *attrFlags) nameAttr(cmd *cobra.Command) *string {
	if cmd.Flags().Changed("name") {
		return &f.name
	}
	return nil
}

// listFlags map onto the shared listing contract.
type listFlags struct {
	offset       int
	limit        int
	all          bool
	showDisabled bool
	enabled      bool
	filters      []string
}

func (f *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.offset, "offset", 0, "number of results to skip")
	cmd.Flags().IntVar(&f.limit, "limit", domain.DefaultLimit, "page size")
	cmd.Flags().BoolVar(&f.all, "all", false, "return every match without paging")
	cmd.Flags().BoolVar(&f.showDisabled, "show-disabled", false, "include disabled records")
	cmd.Flags().BoolVar(&f.enabled, "enabled", true, "only records with this enabled value")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "field=value filter, repeatable")
}

func (f *listFlags) params(cmd *cobra.Command) (domain.ListParams, error) {
	p := domain.ListParams{
		Offset:       f.offset,
		Limit:        f.limit,
		All:          f.all,
		ShowDisabled: f.showDisabled,
	}
	if cmd.Flags().Changed("enabled") {
		p.Enabled = &f.enabled
	}
	filters, err := keyValues(f.filters)
	if err != nil {
		return p, err
	}
	p.Filters = filters
	return p, nil
}

// keyValues parses repeated key=value flags.
func keyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, domain.ValidationError("Invalid filter %q, want key=value", kv)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

// claims parses repeated key=value flags into extra token claims.
func claims(pairs []string) (map[string]any, error) {
	kv, err := keyValues(pairs)
	if err != nil {
		return nil, fmt.Errorf("claims: %w", err)
	}
	if kv == nil {
		return nil, nil
	}
	out := make(map[string]any, len(kv))
	for k, v := range kv {
		out[k] = v
	}
	return out, nil
}
