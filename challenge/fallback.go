package challenge

// FallbackRotation is the deterministic question pool used when no curated
// challenge exists for a date. Order matters: the question for a date is
// picked by day-of-year mod len(FallbackRotation).
var FallbackRotation = []Question{
	{
		Text:          "Pneumothorax on an upright chest radiograph typically shows a visible visceral pleural line with absent lung markings peripheral to it.",
		Explanation:   "The visceral pleural line with no vascular markings beyond it is the classic radiographic sign of pneumothorax on an upright film.",
		CorrectAnswer: true,
	},
	{
		Text:          "Ground-glass opacity on CT completely obscures the underlying bronchial and vascular structures.",
		Explanation:   "Ground-glass opacity increases attenuation while preserving bronchial and vascular margins; consolidation is what obscures them.",
		CorrectAnswer: false,
	},
	{
		Text:          "The Westermark sign refers to regional oligemia distal to a pulmonary embolus.",
		Explanation:   "Westermark sign is focal peripheral hyperlucency from oligemia beyond the occluded vessel, an insensitive but specific sign of pulmonary embolism.",
		CorrectAnswer: true,
	},
	{
		Text:          "On non-contrast head CT, acute intracranial hemorrhage is typically hypodense relative to brain parenchyma.",
		Explanation:   "Acute blood is hyperdense (50-100 HU) on non-contrast CT; it becomes isodense and eventually hypodense as it ages over weeks.",
		CorrectAnswer: false,
	},
	{
		Text:          "A 'bat-wing' perihilar opacity pattern on chest radiograph is characteristic of pulmonary edema.",
		Explanation:   "Bilateral perihilar bat-wing opacities are a classic presentation of alveolar pulmonary edema, usually cardiogenic.",
		CorrectAnswer: true,
	},
	{
		Text:          "T1-weighted MRI shows water-rich tissues such as CSF as bright (high signal).",
		Explanation:   "CSF is dark on T1-weighted images and bright on T2-weighted images; fat is bright on T1.",
		CorrectAnswer: false,
	},
	{
		Text:          "The 'double bubble' sign on an abdominal radiograph of a neonate suggests duodenal atresia.",
		Explanation:   "Gas in the stomach and proximal duodenum with no distal bowel gas forms the double bubble of duodenal atresia.",
		CorrectAnswer: true,
	},
	{
		Text:          "Rib notching on chest radiograph is a recognized finding in coarctation of the aorta.",
		Explanation:   "Dilated intercostal collaterals erode the inferior rib margins, producing the notching seen with longstanding coarctation.",
		CorrectAnswer: true,
	},
	{
		Text:          "An apple-core lesion on barium enema is most suggestive of diverticulosis.",
		Explanation:   "The apple-core (annular constricting) lesion is the classic appearance of colonic adenocarcinoma, not diverticulosis.",
		CorrectAnswer: false,
	},
	{
		Text:          "Air bronchograms within an opacity indicate that the airspaces are filled while the airways remain patent.",
		Explanation:   "Air bronchograms are branching lucent airways made visible by surrounding airspace opacification, typical of consolidation.",
		CorrectAnswer: true,
	},
	{
		Text:          "On ultrasound, a simple cyst is anechoic with posterior acoustic shadowing.",
		Explanation:   "Simple cysts show posterior acoustic ENHANCEMENT, not shadowing; shadowing is produced by calculi and other strong attenuators.",
		CorrectAnswer: false,
	},
	{
		Text:          "The 'string of pearls' sign on abdominal radiograph or CT is associated with small bowel obstruction.",
		Explanation:   "Small gas bubbles trapped between valvulae conniventes in a fluid-filled obstructed loop line up as the string of pearls.",
		CorrectAnswer: true,
	},
}
