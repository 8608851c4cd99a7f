// Package services implements the driving ports: ingestion and index
// consistency, retrieval, question answering and settings.
package services
