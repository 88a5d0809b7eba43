package kyc

// Reasons recorded against a verification
const (
	ReasonOCRFailed          = "Document OCR failed"
	ReasonExtractionFailed   = "Document text extraction failed"
	ReasonValidationFailed   = "Document validation failed"
	ReasonNameNotExtracted   = "Full name could not be extracted from identity documents"
	ReasonSanctionsHit       = "Name found on sanctions list"
	ReasonVerificationFailed = "Verification process failed"
)

// Capability names used in "unavailable" reasons and provider metrics
const (
	CapabilityExtraction   = "text_extraction"
	CapabilityAuthenticity = "authenticity"
	CapabilityFaceMatch    = "face_match"
	CapabilityLiveness     = "liveness"
	CapabilityAddress      = "address_verification"
	CapabilitySanctions    = "sanctions_screening"
)

// Recommendations, one per failed check
const (
	RecommendResubmitDocument = "Request a clear photo of a valid government-issued ID"
	RecommendNewSelfie        = "Request a new selfie that clearly matches the ID photo"
	RecommendLiveness         = "Request a live selfie or short video for liveness verification"
	RecommendCompliance       = "Escalate to compliance for manual sanctions screening"
	RecommendProofOfAddress   = "Request proof of address such as a recent utility bill or bank statement"
)
