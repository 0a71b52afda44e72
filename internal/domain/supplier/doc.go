// Package supplier holds the supplier-sync domain: provider accounts and
// their credential bags, the adapter contract every supplier integration
// implements, the normalized product record adapters produce, the links
// between supplier items and catalog variants, and per-run sync logs.
package supplier
