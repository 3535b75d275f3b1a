package fakedata

var firstNames = []string{
	"Alexander", "Maria", "Daniel", "Elena", "Nikita", "Sofia",
	"Ivan", "Anna", "Pavel", "Olga", "Dmitry", "Victoria",
	"Mateo", "Lucia", "Kenji", "Mei", "Arjun", "Priya",
	"Kofi", "Amara", "Omar", "Layla", "Rafael", "Camila",
}

var middleNames = []string{
	"Alexandrovich", "Sergeevna", "Ivanovich", "Petrovna", "Mikhailovich",
	"Andreevna", "James", "Rose", "Lee", "Marie", "Ray", "Grace",
}

var lastNames = []string{
	"Ivanov", "Smirnova", "Kuznetsov", "Popova", "Volkov", "Sokolova",
	"Reyes", "Mendoza", "Tanaka", "Chen", "Sharma", "Nguyen",
	"Osei", "Mensah", "Hakim", "Khoury", "Blackwood", "Ashford",
}

var emailDomains = []string{
	"example.com", "example.org", "example.net", "mail.test",
}

// purchaseCategories are the merchant categories the gateway accepts.
var purchaseCategories = []string{
	"gas", "taxi", "tolls", "water", "beauty", "mobile", "travel",
	"parking", "catalog", "internet", "satellite", "education",
	"government", "healthcare", "restaurants", "electricity", "supermarkets",
}
